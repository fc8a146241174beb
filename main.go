package main

import "github.com/RyanBlaney/vibration-monitor/cmd"

func main() {
	cmd.Execute()
}
