// Package dataset turns a directory of labelled recordings into feature
// rows for training. Each immediate subdirectory of the root is one
// operating condition; its name decides the label.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RyanBlaney/sonido-sonar/logging"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/features"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/waveform"
)

const (
	DefaultHealthyMarker = "H-0"
	DefaultExtension     = ".txt"
)

// LabeledSample is one recording reduced to features
type LabeledSample struct {
	Features features.Vector  `json:"features" yaml:"features"`
	Label    classifier.Label `json:"label" yaml:"label"`
	Source   string           `json:"source" yaml:"source"`
}

// SkippedFile records a recording that could not be turned into a sample
type SkippedFile struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// Dataset is an ordered collection of labelled samples
type Dataset struct {
	// SampleRate is the rate the features were extracted at; 0 when unknown
	SampleRate float64         `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	Samples    []LabeledSample `json:"samples" yaml:"samples"`
	Skipped    []SkippedFile   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Len returns the number of samples
func (d *Dataset) Len() int {
	return len(d.Samples)
}

// Matrix returns the feature rows and labels in sample order
func (d *Dataset) Matrix() ([][]float64, []int) {
	X := make([][]float64, len(d.Samples))
	y := make([]int, len(d.Samples))
	for i, s := range d.Samples {
		X[i] = s.Features.Slice()
		y[i] = int(s.Label)
	}
	return X, y
}

// Counts returns how many samples carry each label
func (d *Dataset) Counts() map[classifier.Label]int {
	counts := map[classifier.Label]int{classifier.Healthy: 0, classifier.Fault: 0}
	for _, s := range d.Samples {
		counts[s.Label]++
	}
	return counts
}

// Options configure a Builder
type Options struct {
	// HealthyMarker labels a condition folder healthy when its name contains it
	HealthyMarker string
	// Extension selects recording files, matched case-insensitively
	Extension string
	// Columns selects channels from multi-column files; empty reads one value per line
	Columns []int
}

// DefaultOptions matches the layout of the bundled fan-skid recordings
func DefaultOptions() Options {
	return Options{
		HealthyMarker: DefaultHealthyMarker,
		Extension:     DefaultExtension,
	}
}

// Builder walks a data root and extracts features from every recording
type Builder struct {
	loader  *waveform.Loader
	options Options
	logger  logging.Logger
}

// NewBuilder creates a builder reading recordings with loader
func NewBuilder(loader *waveform.Loader, opts Options) (*Builder, error) {
	if loader == nil {
		return nil, common.NewConfigurationError("dataset", "loader is required", nil)
	}
	if opts.HealthyMarker == "" {
		return nil, common.NewConfigurationError("dataset", "healthy marker must not be empty", nil)
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if !strings.HasPrefix(opts.Extension, ".") {
		opts.Extension = "." + opts.Extension
	}

	return &Builder{
		loader:  loader,
		options: opts,
		logger: logging.WithFields(logging.Fields{
			"component":      "dataset_builder",
			"healthy_marker": opts.HealthyMarker,
		}),
	}, nil
}

// LabelFor returns the label implied by a condition folder name
func (b *Builder) LabelFor(folder string) classifier.Label {
	if strings.Contains(folder, b.options.HealthyMarker) {
		return classifier.Healthy
	}
	return classifier.Fault
}

// Build extracts one sample per readable recording (one per channel for
// multi-column files). Folders and files are visited in name order so the
// result is reproducible. Unreadable files are skipped and recorded.
func (b *Builder) Build(root string) (*Dataset, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, common.NewConfigurationError(root, "cannot read data directory", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	ds := &Dataset{SampleRate: b.loader.SampleRate()}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := b.addFolder(ds, filepath.Join(root, entry.Name()), entry.Name()); err != nil {
			return nil, err
		}
	}

	if ds.Len() == 0 {
		return nil, common.NewEmptyDatasetError(root,
			fmt.Sprintf("no %s recordings produced samples (%d skipped)", b.options.Extension, len(ds.Skipped)), nil)
	}

	counts := ds.Counts()
	b.logger.Info("Dataset built", logging.Fields{
		"root":    root,
		"samples": ds.Len(),
		"healthy": counts[classifier.Healthy],
		"fault":   counts[classifier.Fault],
		"skipped": len(ds.Skipped),
	})
	return ds, nil
}

func (b *Builder) addFolder(ds *Dataset, dir, name string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return common.NewConfigurationError(dir, "cannot read condition folder", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	label := b.LabelFor(name)
	for _, f := range files {
		if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), b.options.Extension) {
			continue
		}
		path := filepath.Join(dir, f.Name())

		waves, err := b.loader.LoadFile(path, b.options.Columns...)
		if err != nil {
			b.skip(ds, path, err)
			continue
		}
		for _, w := range waves {
			v, err := features.Extract(w)
			if err != nil {
				b.skip(ds, path, err)
				continue
			}
			source := filepath.Join(name, f.Name())
			if w.Channel() >= 0 {
				source = fmt.Sprintf("%s[%d]", source, w.Channel())
			}
			ds.Samples = append(ds.Samples, LabeledSample{Features: v, Label: label, Source: source})
		}
	}
	return nil
}

func (b *Builder) skip(ds *Dataset, path string, err error) {
	b.logger.Warn("Skipping recording", logging.Fields{
		"path":  path,
		"error": err.Error(),
	})
	ds.Skipped = append(ds.Skipped, SkippedFile{Path: path, Reason: err.Error()})
}
