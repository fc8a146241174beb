package diagnosis

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/google/uuid"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/features"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/frequencies"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/health"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/spectrum"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/waveform"
)

// Config holds everything one analysis pass needs
type Config struct {
	SampleRate float64
	Window     spectrum.WindowType
	// Channels selects columns of multi-channel recordings
	Channels []int
	// MaxFrequency limits the peak search; 0 means Nyquist
	MaxFrequency float64
	PeakCount    int
	Drive        frequencies.Drive
	Thresholds   classifier.Thresholds
	// Classifier is the configured strategy, usually from classifier.New.
	// Nil uses the threshold rule built from Thresholds.
	Classifier      classifier.Classifier
	IncludeSpectrum bool
}

// Engine runs load -> spectrum -> features -> classify -> overlay for
// each recording. It holds no per-recording state and may be reused.
type Engine struct {
	config     Config
	loader     *waveform.Loader
	analyzer   *spectrum.Analyzer
	classifier classifier.Classifier
	// rule is reported next to model verdicts and stands in when the model is unavailable
	rule      *classifier.ThresholdRule
	markers   frequencies.Set
	logger    logging.Logger
	baselines map[int]*spectrum.Spectrum
	baseline  string
}

// NewEngine validates cfg and prepares the shared components
func NewEngine(cfg Config) (*Engine, error) {
	loader, err := waveform.NewLoader(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	analyzer, err := spectrum.NewAnalyzer(cfg.Window)
	if err != nil {
		return nil, err
	}
	rule, err := classifier.NewThresholdRule(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	markers, err := frequencies.Compute(cfg.Drive)
	if err != nil {
		return nil, err
	}
	if cfg.PeakCount < 0 {
		return nil, common.NewConfigurationError("diagnosis", "peak count cannot be negative", nil)
	}

	var clf classifier.Classifier = rule
	if cfg.Classifier != nil {
		clf = cfg.Classifier
	}

	return &Engine{
		config:     cfg,
		loader:     loader,
		analyzer:   analyzer,
		classifier: clf,
		rule:       rule,
		markers:    markers,
		logger: logging.WithFields(logging.Fields{
			"component":   "diagnosis_engine",
			"sample_rate": cfg.SampleRate,
			"window":      string(analyzer.WindowType()),
			"strategy":    string(clf.Strategy()),
		}),
	}, nil
}

// Markers returns the characteristic frequencies overlaid on every spectrum
func (e *Engine) Markers() frequencies.Set {
	return e.markers
}

// SetBaseline loads a healthy reference recording. Subsequent reports
// include per-marker deltas against the baseline channel with the same
// position.
func (e *Engine) SetBaseline(path string) error {
	waves, err := e.loader.LoadFile(path, e.config.Channels...)
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}

	baselines := make(map[int]*spectrum.Spectrum, len(waves))
	for i, w := range waves {
		spec, err := e.analyzer.Analyze(w)
		if err != nil {
			return fmt.Errorf("failed to analyze baseline: %w", err)
		}
		baselines[i] = spec
	}

	e.baselines = baselines
	e.baseline = path
	e.logger.Debug("Baseline loaded", logging.Fields{
		"path":     path,
		"channels": len(baselines),
	})
	return nil
}

// AnalyzeFile analyzes the recording at path
func (e *Engine) AnalyzeFile(path string) (*Report, error) {
	waves, err := e.loader.LoadFile(path, e.config.Channels...)
	if err != nil {
		return nil, err
	}
	return e.AnalyzeWaveforms(path, waves)
}

// AnalyzeReader analyzes a recording supplied as a byte stream, e.g. an upload
func (e *Engine) AnalyzeReader(r io.Reader, source string) (*Report, error) {
	var (
		waves []*waveform.Waveform
		err   error
	)
	if len(e.config.Channels) == 0 {
		var w *waveform.Waveform
		w, err = e.loader.ReadSingle(r, source)
		waves = []*waveform.Waveform{w}
	} else {
		waves, err = e.loader.ReadColumns(r, source, e.config.Channels...)
	}
	if err != nil {
		return nil, err
	}
	return e.AnalyzeWaveforms(source, waves)
}

// AnalyzeFiles analyzes several recordings, stopping early if ctx is
// cancelled. Files that fail are reported in the error slice and do not
// stop the batch.
func (e *Engine) AnalyzeFiles(ctx context.Context, paths []string) ([]*Report, []error) {
	reports := make([]*Report, 0, len(paths))
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := e.AnalyzeFile(path)
		if err != nil {
			e.logger.Error(err, "Recording analysis failed", logging.Fields{"path": path})
			errs = append(errs, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, errs
}

// AnalyzeWaveforms analyzes already loaded channels of one recording
func (e *Engine) AnalyzeWaveforms(source string, waves []*waveform.Waveform) (*Report, error) {
	if len(waves) == 0 {
		return nil, common.NewFormatError(source, "recording has no channels", nil)
	}

	report := &Report{
		ID:         uuid.NewString(),
		Source:     source,
		AnalyzedAt: time.Now().UTC(),
		SampleRate: e.config.SampleRate,
		Window:     e.analyzer.WindowType(),
		Drive:      e.config.Drive,
		Baseline:   e.baseline,
		Channels:   make([]ChannelReport, 0, len(waves)),
	}

	for i, w := range waves {
		ch, err := e.analyzeChannel(i, w)
		if err != nil {
			return nil, err
		}
		report.Channels = append(report.Channels, *ch)
	}

	e.logger.Info("Recording analyzed", logging.Fields{
		"source":   source,
		"channels": len(report.Channels),
		"fault":    report.AnyFault(),
	})
	return report, nil
}

func (e *Engine) analyzeChannel(index int, w *waveform.Waveform) (*ChannelReport, error) {
	spec, err := e.analyzer.Analyze(w)
	if err != nil {
		return nil, err
	}
	vec, err := features.Extract(w)
	if err != nil {
		return nil, err
	}

	ch := &ChannelReport{
		Channel:    w.Channel(),
		Label:      w.Label(),
		Samples:    w.Len(),
		Duration:   w.Duration(),
		Resolution: spec.Resolution(),
		Features:   vec,
		Dominant:   spec.Dominant(),
		Peaks:      spec.Peaks(e.config.PeakCount, e.config.MaxFrequency),
		Markers:    spectrum.Overlay(spec, e.markers),
	}

	verdict, err := e.classifier.Classify(vec)
	if err != nil && !common.IsRecoverable(err) {
		return nil, err
	}
	switch {
	case err != nil:
		ch.ModelError = err.Error()
		ch.Threshold, err = e.rule.Classify(vec)
	case e.classifier.Strategy() == classifier.StrategyThreshold:
		ch.Threshold = verdict
	default:
		ch.Model = &verdict
		ch.Threshold, err = e.rule.Classify(vec)
	}
	if err != nil {
		return nil, err
	}

	if base, ok := e.baselines[index]; ok {
		ch.BaselineDeltas = spectrum.CompareMarkers(spec, base, e.markers)
	}

	if e.config.IncludeSpectrum {
		ch.Spectrum = spec
	}

	return ch, nil
}

// ApplyToComponent sets the component's entry of status to the worst state
// derived from the reports' decisive verdicts and returns the updated map.
// With no reports status is returned unchanged.
func ApplyToComponent(status *health.StatusMap, component string, reports ...*Report) *health.StatusMap {
	if len(reports) == 0 {
		return status
	}
	worst := health.Good
	for _, r := range reports {
		if state := health.FromVerdict(r.Decisive()); state.Severity() > worst.Severity() {
			worst = state
		}
	}
	return status.With(component, worst)
}
