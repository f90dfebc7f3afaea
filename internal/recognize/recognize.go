package recognize

import (
	"context"
	"fmt"
)

// FailureKind classifies why recognition produced no identity.
type FailureKind string

const (
	NoFaceDetected FailureKind = "no_face_detected"
	NoMatch        FailureKind = "no_match"
	ModelError     FailureKind = "model_error"
)

// Error is a structured recognition failure. Callers match the kind with
// errors.As instead of comparing message strings.
type Error struct {
	Kind    FailureKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("recognition failed (%s): %s", e.Kind, e.Message)
}

// Result is a recognized identity with its confidence score.
type Result struct {
	PersonID   int64   `json:"person_id"`
	Nama       string  `json:"nama"`
	Confidence float64 `json:"confidence"`
}

// Recognizer identifies a person from a staged image file. Implementations
// are invoked exactly once per request; retries are the caller's business.
type Recognizer interface {
	Recognize(ctx context.Context, modelName, filePath string, faceDetThreshold, faceDistThreshold float64) (*Result, error)
}
