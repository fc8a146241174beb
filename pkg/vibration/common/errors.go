package common

import "errors"

// ErrorKind classifies analysis failures so callers can tell a bad file from
// a missing model from a bad configuration.
type ErrorKind string

const (
	KindFormat           ErrorKind = "format"
	KindConfiguration    ErrorKind = "configuration"
	KindModelUnavailable ErrorKind = "model_unavailable"
	KindEmptyDataset     ErrorKind = "empty_dataset"
	KindFeatureContract  ErrorKind = "feature_contract"
)

// Sentinels for errors.Is checks against an *AnalysisError of the same kind.
var (
	ErrFormat           = errors.New("format error")
	ErrConfiguration    = errors.New("configuration error")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrEmptyDataset     = errors.New("empty dataset")
	ErrFeatureContract  = errors.New("feature contract mismatch")
)

// AnalysisError represents a typed failure of one analysis input
type AnalysisError struct {
	Kind    ErrorKind `json:"kind"`
	Source  string    `json:"source,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *AnalysisError) Error() string {
	msg := e.Message
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel belonging to the error's kind.
func (e *AnalysisError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

func sentinelFor(kind ErrorKind) error {
	switch kind {
	case KindFormat:
		return ErrFormat
	case KindConfiguration:
		return ErrConfiguration
	case KindModelUnavailable:
		return ErrModelUnavailable
	case KindEmptyDataset:
		return ErrEmptyDataset
	case KindFeatureContract:
		return ErrFeatureContract
	default:
		return nil
	}
}

// NewFormatError creates an error for input that cannot be parsed into samples
func NewFormatError(source, message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindFormat, Source: source, Message: message, Cause: cause}
}

// NewConfigurationError creates an error for invalid analysis parameters
func NewConfigurationError(source, message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindConfiguration, Source: source, Message: message, Cause: cause}
}

// NewModelUnavailableError creates an error for a missing or unreadable model artifact
func NewModelUnavailableError(source, message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindModelUnavailable, Source: source, Message: message, Cause: cause}
}

// NewEmptyDatasetError creates an error for a training run with no usable samples
func NewEmptyDatasetError(source, message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindEmptyDataset, Source: source, Message: message, Cause: cause}
}

// NewFeatureContractError creates an error for a model trained on a different feature layout
func NewFeatureContractError(source, message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindFeatureContract, Source: source, Message: message, Cause: cause}
}

// KindOf returns the kind of the first AnalysisError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsRecoverable reports whether the caller may keep operating without the
// failed result. Only a missing model qualifies.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}
