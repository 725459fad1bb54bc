package pipeline

import (
	"errors"
	"fmt"
)

// Kind names the stage a pipeline run failed in.
type Kind string

const (
	MalformedUpload          Kind = "MalformedUpload"
	PersistFailed            Kind = "PersistFailed"
	ProbeFailed              Kind = "ProbeFailed"
	ExtractionFailed         Kind = "ExtractionFailed"
	TranscriptionFailed      Kind = "TranscriptionFailed"
	TranscriptionUnreachable Kind = "TranscriptionUnreachable"
	RegistrationFailed       Kind = "RegistrationFailed"
)

var messages = map[Kind]string{
	MalformedUpload:          "No file uploaded",
	PersistFailed:            "Failed to store uploaded file",
	ProbeFailed:              "Failed to inspect media streams",
	ExtractionFailed:         "Failed to extract audio",
	TranscriptionFailed:      "Transcription failed",
	TranscriptionUnreachable: "Transcription service unreachable",
	RegistrationFailed:       "Failed to register transcript",
}

// Message is the user facing summary of the failure.
func (k Kind) Message() string {
	if m, ok := messages[k]; ok {
		return m
	}
	return string(k)
}

// StageError is the only error type Run returns.
type StageError struct {
	Kind Kind
	Err  error
}

func newStageError(kind Kind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

// Malformed builds the error for a request that carried no usable file.
func Malformed(format string, args ...any) *StageError {
	return newStageError(MalformedUpload, fmt.Errorf(format, args...))
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Details is the underlying error text.
func (e *StageError) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// KindOf extracts the failing stage from err, if it is a StageError.
func KindOf(err error) (Kind, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
