package waveform

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
)

// maxLineLength bounds a single text row; multi-channel exports can be wide.
const maxLineLength = 1024 * 1024

// Loader parses vibration recordings in one of two text layouts:
//   - single channel: one amplitude value per line
//   - multi channel: whitespace or tab separated columns, selected by index
//
// Blank and non-numeric lines (headers, comments) are skipped in both.
type Loader struct {
	sampleRate float64
	logger     logging.Logger
}

// NewLoader creates a loader that stamps every waveform with sampleRate.
// The rate is not stored in the files, so it must be supplied explicitly.
func NewLoader(sampleRate float64) (*Loader, error) {
	if sampleRate <= 0 {
		return nil, common.NewConfigurationError("loader",
			fmt.Sprintf("sample rate must be positive, got %g", sampleRate), nil)
	}

	return &Loader{
		sampleRate: sampleRate,
		logger: logging.WithFields(logging.Fields{
			"component":   "waveform_loader",
			"sample_rate": sampleRate,
		}),
	}, nil
}

// SampleRate returns the rate applied to loaded waveforms
func (l *Loader) SampleRate() float64 {
	return l.sampleRate
}

// LoadFile reads path. With no columns the file is treated as single
// channel; otherwise one waveform is returned per requested column.
func (l *Loader) LoadFile(path string, columns ...int) ([]*Waveform, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, common.NewFormatError(path, "cannot open recording", err)
	}
	defer file.Close()

	source := filepath.Base(path)
	if len(columns) == 0 {
		w, err := l.ReadSingle(file, source)
		if err != nil {
			return nil, err
		}
		return []*Waveform{w}, nil
	}

	return l.ReadColumns(file, source, columns...)
}

// ReadSingle parses the single-channel layout, taking the sole value on
// each line.
func (l *Loader) ReadSingle(r io.Reader, source string) (*Waveform, error) {
	var samples []float64
	skipped := 0

	err := scanLines(r, func(line string) {
		fields := strings.Fields(line)
		if len(fields) != 1 {
			if len(fields) > 0 {
				skipped++
			}
			return
		}
		value, err := parseSample(fields[0])
		if err != nil {
			skipped++
			return
		}
		samples = append(samples, value)
	})
	if err != nil {
		return nil, common.NewFormatError(source, "read failed", err)
	}

	if len(samples) == 0 {
		return nil, common.NewFormatError(source, "no numeric rows found", nil)
	}

	l.logger.Debug("Loaded single-channel recording", logging.Fields{
		"source":  source,
		"samples": len(samples),
		"skipped": skipped,
	})

	return newWaveform(source, -1, samples, l.sampleRate)
}

// ReadColumns parses the multi-channel layout and returns one waveform per
// requested column, in request order. A row contributes only if every
// requested column is present and numeric, so channels stay aligned.
func (l *Loader) ReadColumns(r io.Reader, source string, columns ...int) ([]*Waveform, error) {
	if len(columns) == 0 {
		return nil, common.NewConfigurationError(source, "no columns requested", nil)
	}
	for _, c := range columns {
		if c < 0 {
			return nil, common.NewConfigurationError(source,
				fmt.Sprintf("invalid column index %d", c), nil)
		}
	}

	maxColumn := slices.Max(columns)
	channels := make([][]float64, len(columns))
	widest := 0
	skipped := 0

	err := scanLines(r, func(line string) {
		fields := splitColumns(line)
		if len(fields) == 0 {
			return
		}
		widest = max(widest, len(fields))
		if len(fields) <= maxColumn {
			skipped++
			return
		}

		row := make([]float64, len(columns))
		for i, c := range columns {
			value, err := parseSample(fields[c])
			if err != nil {
				skipped++
				return
			}
			row[i] = value
		}
		for i, value := range row {
			channels[i] = append(channels[i], value)
		}
	})
	if err != nil {
		return nil, common.NewFormatError(source, "read failed", err)
	}

	if len(channels[0]) == 0 {
		if widest > 0 && widest <= maxColumn {
			return nil, common.NewFormatError(source,
				fmt.Sprintf("missing column %d (rows have %d columns)", maxColumn, widest), nil)
		}
		return nil, common.NewFormatError(source, "no numeric rows found", nil)
	}

	l.logger.Debug("Loaded multi-channel recording", logging.Fields{
		"source":  source,
		"columns": columns,
		"rows":    len(channels[0]),
		"skipped": skipped,
	})

	waveforms := make([]*Waveform, len(columns))
	for i, c := range columns {
		w, err := newWaveform(source, c, channels[i], l.sampleRate)
		if err != nil {
			return nil, err
		}
		waveforms[i] = w
	}

	return waveforms, nil
}

func scanLines(r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		// cells are trimmed by the caller; trimming here would drop a leading empty cell
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fn(line)
	}
	return scanner.Err()
}

// splitColumns prefers tabs so empty cells keep their position, and falls
// back to generic whitespace.
func splitColumns(line string) []string {
	if strings.Contains(line, "\t") {
		parts := strings.Split(line, "\t")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return strings.Fields(line)
}

func parseSample(field string) (float64, error) {
	value, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("non-finite sample %q", field)
	}
	return value, nil
}
