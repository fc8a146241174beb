package spectrum

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-sonar/algorithms/windowing"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
)

// WindowType selects the taper applied before the transform
type WindowType string

const (
	WindowHann        WindowType = "hann"
	WindowHamming     WindowType = "hamming"
	WindowBlackman    WindowType = "blackman"
	WindowRectangular WindowType = "rectangular"
)

// SupportedWindows lists every accepted window type
var SupportedWindows = []WindowType{WindowHann, WindowHamming, WindowBlackman, WindowRectangular}

type window interface {
	Apply(signal []float64) []float64
}

// ParseWindowType normalises a configured window name. An empty name means Hann.
func ParseWindowType(name string) (WindowType, error) {
	switch WindowType(strings.ToLower(strings.TrimSpace(name))) {
	case "", WindowHann, "hanning":
		return WindowHann, nil
	case WindowHamming:
		return WindowHamming, nil
	case WindowBlackman:
		return WindowBlackman, nil
	case WindowRectangular, "none", "boxcar":
		return WindowRectangular, nil
	default:
		return "", common.NewConfigurationError("window",
			fmt.Sprintf("unsupported window function %q", name), nil)
	}
}

// newWindow builds symmetric coefficients so a Hann window of length N
// matches the classic 0.5*(1-cos(2*pi*n/(N-1))) definition.
func newWindow(kind WindowType, size int) (window, error) {
	switch kind {
	case WindowHann:
		return windowing.NewHann(size, true), nil
	case WindowHamming:
		return windowing.NewHamming(size, true), nil
	case WindowBlackman:
		return windowing.NewBlackman(size, true), nil
	case WindowRectangular:
		return windowing.NewRectangular(size), nil
	default:
		return nil, common.NewConfigurationError("window",
			fmt.Sprintf("unsupported window function %q", kind), nil)
	}
}
