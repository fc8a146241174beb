package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/vibration-monitor/internal/diagnosis"
	"github.com/RyanBlaney/vibration-monitor/internal/training"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/frequencies"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/health"
)

// AnalysisResult is the output of the analyze command
type AnalysisResult struct {
	Reports    []*diagnosis.Report  `json:"reports" yaml:"reports"`
	Markers    []frequencies.Marker `json:"markers" yaml:"markers"`
	Components []health.Entry       `json:"components,omitempty" yaml:"components,omitempty"`
	Errors     []string             `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// FrequencyResult is the output of the frequencies command
type FrequencyResult struct {
	Drive   frequencies.Drive    `json:"drive" yaml:"drive"`
	Markers []frequencies.Marker `json:"markers" yaml:"markers"`
}

// StatusResult is the output of the status command
type StatusResult struct {
	Components []health.Entry       `json:"components" yaml:"components"`
	Counts     map[health.State]int `json:"counts" yaml:"counts"`
	Worst      health.State         `json:"worst" yaml:"worst"`
}

// tabular results know how to lay themselves out as tables
type tabular interface {
	tables(f *formatter) []string
}

// render formats data in the configured output format and writes it to
// the output file or the app's writer
func (app *App) render(data tabular) error {
	f := &formatter{
		precision: app.config.Output.Precision,
		colorize:  app.config.Output.Colors && app.ctx.OutputFile == "" && shouldColorize(app.out),
	}

	var (
		formatted []byte
		err       error
	)
	switch strings.ToLower(app.ctx.OutputFormat) {
	case "json":
		formatted, err = json.MarshalIndent(data, "", "  ")
		formatted = append(formatted, '\n')
	case "yaml":
		formatted, err = yaml.Marshal(data)
	case "table", "":
		formatted = []byte(strings.Join(data.tables(f), "\n\n") + "\n")
	default:
		return fmt.Errorf("unsupported output format: %s", app.ctx.OutputFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to format output data: %w", err)
	}

	// Write to file or stdout
	if app.ctx.OutputFile != "" {
		return app.writeToFile(formatted)
	}

	_, err = app.out.Write(formatted)
	return err
}

type formatter struct {
	precision int
	colorize  bool
}

func (f *formatter) num(v float64) string {
	p := f.precision
	if p <= 0 {
		p = 4
	}
	return strconv.FormatFloat(v, 'f', p, 64)
}

func (f *formatter) verdict(v classifier.Verdict) string {
	s := v.Label.String()
	if v.IsFault() {
		s += " (" + string(v.Severity) + ")"
		if f.colorize {
			return text.FgRed.Sprint(s)
		}
		return s
	}
	if f.colorize {
		return text.FgGreen.Sprint(s)
	}
	return s
}

func (f *formatter) state(s health.State) string {
	title := s.Title()
	if !f.colorize {
		return title
	}
	switch s {
	case health.Good:
		return text.FgGreen.Sprint(title)
	case health.Warning:
		return text.FgYellow.Sprint(title)
	default:
		return text.FgRed.Sprint(title)
	}
}

func (r *AnalysisResult) tables(f *formatter) []string {
	var out []string
	for _, report := range r.Reports {
		out = append(out, reportTables(f, report)...)
	}
	if len(r.Components) > 0 {
		out = append(out, componentTable(f, r.Components))
	}
	if len(r.Errors) > 0 {
		rows := make([][]string, len(r.Errors))
		for i, e := range r.Errors {
			rows[i] = []string{e}
		}
		out = append(out, renderTable([]string{"Error"}, rows, nil))
	}
	return out
}

func reportTables(f *formatter, report *diagnosis.Report) []string {
	summaryRows := make([][]string, 0, len(report.Channels))
	for _, ch := range report.Channels {
		model := "-"
		switch {
		case ch.Model != nil:
			model = f.verdict(*ch.Model) + " " + f.num(ch.Model.Confidence)
		case ch.ModelError != "":
			model = "unavailable"
		}
		summaryRows = append(summaryRows, []string{
			ch.Label,
			strconv.Itoa(ch.Samples),
			f.num(ch.Features.RMS),
			f.num(ch.Features.Peak),
			f.num(ch.Features.CrestFactor),
			f.num(ch.Features.Skewness),
			f.num(ch.Features.Kurtosis),
			f.num(ch.Features.DominantFrequency),
			f.num(ch.Resolution),
			f.verdict(ch.Threshold),
			model,
		})
	}
	tables := []string{renderTable(
		[]string{"Channel", "Samples", "RMS", "Peak", "Crest", "Skew", "Kurtosis", "Dominant Hz", "Resolution Hz", "Threshold", "Model"},
		summaryRows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)}

	for _, ch := range report.Channels {
		if ch.Threshold.IsFault() {
			tables = append(tables, ch.Label+": "+ch.Threshold.Message)
		}

		markerRows := make([][]string, 0, len(ch.Markers))
		for _, m := range ch.Markers {
			bin := "-"
			mag := "-"
			if m.InRange {
				bin = f.num(m.BinFrequency)
				mag = f.num(m.Magnitude)
			}
			resolvable := "yes"
			if !m.Resolvable {
				resolvable = "no"
			}
			markerRows = append(markerRows, []string{m.Label, f.num(m.Frequency), bin, mag, resolvable})
		}
		tables = append(tables, renderTable(
			[]string{ch.Label + " marker", "Hz", "Bin Hz", "Magnitude", "Resolvable"},
			markerRows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
		))

		if len(ch.Peaks) > 0 {
			peakRows := make([][]string, len(ch.Peaks))
			for i, p := range ch.Peaks {
				peakRows[i] = []string{strconv.Itoa(i + 1), f.num(p.Frequency), f.num(p.Magnitude)}
			}
			tables = append(tables, renderTable(
				[]string{ch.Label + " peak", "Hz", "Magnitude"},
				peakRows,
				[]columnAlignment{alignRight, alignRight, alignRight},
			))
		}

		if len(ch.BaselineDeltas) > 0 {
			deltaRows := make([][]string, len(ch.BaselineDeltas))
			for i, d := range ch.BaselineDeltas {
				deltaRows[i] = []string{d.Label, f.num(d.Frequency), f.num(d.Magnitude), f.num(d.Baseline), f.num(d.Delta), f.num(d.Ratio)}
			}
			tables = append(tables, renderTable(
				[]string{ch.Label + " vs baseline", "Hz", "Magnitude", "Baseline", "Delta", "Ratio"},
				deltaRows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
		}
	}
	return tables
}

func componentTable(f *formatter, entries []health.Entry) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Component, f.state(e.State)}
	}
	return renderTable([]string{"Component", "State"}, rows, nil)
}

func (r *FrequencyResult) tables(f *formatter) []string {
	rows := make([][]string, len(r.Markers))
	for i, m := range r.Markers {
		rows[i] = []string{m.Label, string(m.Kind), f.num(m.Frequency)}
	}
	header := fmt.Sprintf("rpm %s, driver diameter %s, belt length %s",
		f.num(r.Drive.RPM), f.num(r.Drive.DriverDiameter), f.num(r.Drive.BeltLength))
	return []string{header, renderTable(
		[]string{"Marker", "Kind", "Hz"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)}
}

func (r *StatusResult) tables(f *formatter) []string {
	counts := make([][]string, 0, len(health.States))
	for _, s := range health.States {
		counts = append(counts, []string{f.state(s), strconv.Itoa(r.Counts[s])})
	}
	return []string{
		componentTable(f, r.Components),
		renderTable([]string{"State", "Components"}, counts, []columnAlignment{alignLeft, alignRight}),
	}
}

// trainingSummary adapts training.Summary to the renderer
type trainingSummary struct {
	training.Summary `yaml:",inline"`
}

func (s *trainingSummary) tables(f *formatter) []string {
	return trainingTables(f, &s.Summary)
}

func trainingTables(f *formatter, s *training.Summary) []string {
	overview := renderTable(
		[]string{"Run", "Samples", "Healthy", "Fault", "Skipped", "Train", "Test", "Trees", "Model"},
		[][]string{{
			s.RunID,
			strconv.Itoa(s.Samples),
			strconv.Itoa(s.Healthy),
			strconv.Itoa(s.Fault),
			strconv.Itoa(len(s.Skipped)),
			strconv.Itoa(s.TrainSize),
			strconv.Itoa(s.TestSize),
			strconv.Itoa(s.Trees),
			s.ModelID,
		}},
		nil,
	)
	out := []string{overview}

	if ev := s.Evaluation; ev != nil {
		rows := make([][]string, 0, len(ev.Classes)+3)
		for _, c := range ev.Classes {
			rows = append(rows, []string{c.Label, f.num(c.Precision), f.num(c.Recall), f.num(c.F1), strconv.Itoa(c.Support)})
		}
		rows = append(rows,
			[]string{"accuracy", "", "", f.num(ev.Accuracy), strconv.Itoa(ev.Total)},
			[]string{ev.MacroAvg.Label, f.num(ev.MacroAvg.Precision), f.num(ev.MacroAvg.Recall), f.num(ev.MacroAvg.F1), strconv.Itoa(ev.MacroAvg.Support)},
			[]string{ev.WeightedAvg.Label, f.num(ev.WeightedAvg.Precision), f.num(ev.WeightedAvg.Recall), f.num(ev.WeightedAvg.F1), strconv.Itoa(ev.WeightedAvg.Support)},
		)
		out = append(out, renderTable(
			[]string{"", "Precision", "Recall", "F1", "Support"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
	}

	if len(s.Skipped) > 0 {
		rows := make([][]string, len(s.Skipped))
		for i, sk := range s.Skipped {
			rows[i] = []string{sk.Path, sk.Reason}
		}
		out = append(out, renderTable([]string{"Skipped", "Reason"}, rows, nil))
	}
	if s.ModelPath != "" {
		out = append(out, "Model written to "+s.ModelPath)
	}
	return out
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
