package dataset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/features"
)

// sampleRateKey is the file metadata key holding the extraction rate.
// dominant_frequency is only comparable between rows sharing it.
const sampleRateKey = "vibration.sample_rate"

// FeatureRow is the columnar export layout of a LabeledSample. Column
// names follow features.Names.
type FeatureRow struct {
	Source            string  `parquet:"source"`
	Label             int32   `parquet:"label"`
	RMS               float64 `parquet:"rms"`
	Peak              float64 `parquet:"peak"`
	CrestFactor       float64 `parquet:"crest_factor"`
	Skewness          float64 `parquet:"skewness"`
	Kurtosis          float64 `parquet:"kurtosis"`
	DominantFrequency float64 `parquet:"dominant_frequency"`
}

func rowFromSample(s LabeledSample) FeatureRow {
	return FeatureRow{
		Source:            s.Source,
		Label:             int32(s.Label),
		RMS:               s.Features.RMS,
		Peak:              s.Features.Peak,
		CrestFactor:       s.Features.CrestFactor,
		Skewness:          s.Features.Skewness,
		Kurtosis:          s.Features.Kurtosis,
		DominantFrequency: s.Features.DominantFrequency,
	}
}

func (r FeatureRow) sample() (LabeledSample, error) {
	label := classifier.Label(r.Label)
	if label != classifier.Healthy && label != classifier.Fault {
		return LabeledSample{}, common.NewFormatError(r.Source,
			fmt.Sprintf("label %d is not binary", r.Label), nil)
	}
	return LabeledSample{
		Source: r.Source,
		Label:  label,
		Features: features.Vector{
			RMS:               r.RMS,
			Peak:              r.Peak,
			CrestFactor:       r.CrestFactor,
			Skewness:          r.Skewness,
			Kurtosis:          r.Kurtosis,
			DominantFrequency: r.DominantFrequency,
		},
	}, nil
}

// WriteParquet encodes the samples as zstd-compressed parquet
func (d *Dataset) WriteParquet(w io.Writer) error {
	rows := make([]FeatureRow, len(d.Samples))
	for i, s := range d.Samples {
		rows[i] = rowFromSample(s)
	}

	options := []parquet.WriterOption{parquet.Compression(&parquet.Zstd)}
	if d.SampleRate > 0 {
		options = append(options, parquet.KeyValueMetadata(sampleRateKey,
			strconv.FormatFloat(d.SampleRate, 'g', -1, 64)))
	}

	pw := parquet.NewGenericWriter[FeatureRow](w, options...)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("failed to write feature rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet: %w", err)
	}
	return nil
}

// SaveParquet writes the dataset to path
func (d *Dataset) SaveParquet(path string) error {
	var buf bytes.Buffer
	if err := d.WriteParquet(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadParquet decodes a dataset previously written by WriteParquet. The
// sample rate is restored from the file metadata when present.
func ReadParquet(data []byte) (*Dataset, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, common.NewFormatError("parquet", "not a feature export", err)
	}

	ds := &Dataset{}
	if value, ok := file.Lookup(sampleRateKey); ok {
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate <= 0 {
			return nil, common.NewFormatError("parquet",
				fmt.Sprintf("invalid sample rate metadata %q", value), err)
		}
		ds.SampleRate = rate
	}

	gr := parquet.NewGenericReader[FeatureRow](bytes.NewReader(data))
	defer gr.Close()

	batch := make([]FeatureRow, 256)
	for {
		n, err := gr.Read(batch)
		for _, row := range batch[:n] {
			s, convErr := row.sample()
			if convErr != nil {
				return nil, convErr
			}
			ds.Samples = append(ds.Samples, s)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, common.NewFormatError("parquet", "cannot decode feature rows", err)
		}
	}

	if ds.Len() == 0 {
		return nil, common.NewEmptyDatasetError("parquet", "file contains no feature rows", nil)
	}
	return ds, nil
}

// LoadParquet reads a dataset from path
func LoadParquet(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewFormatError(path, "cannot read feature export", err)
	}
	return ReadParquet(data)
}
