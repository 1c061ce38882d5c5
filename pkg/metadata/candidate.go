package metadata

import (
	"github.com/pkg/errors"

	"github.com/bookerybooks/bookery/pkg/errcodes"
)

// Candidate is a metadata match from an external source, wrapping the
// metadata with a confidence score and provenance so the review flow can
// rank and display it.
type Candidate struct {
	Metadata   *BookMetadata
	Confidence float64
	Source     string
	SourceID   string
}

// NewCandidate builds a Candidate. Confidence outside [0, 1] is a
// validation error; it is never clamped.
func NewCandidate(meta *BookMetadata, confidence float64, source, sourceID string) (*Candidate, error) {
	if confidence < 0.0 || confidence > 1.0 {
		return nil, errors.WithStack(errcodes.Validationf("confidence must be between 0.0 and 1.0, got %v", confidence))
	}
	return &Candidate{
		Metadata:   meta,
		Confidence: confidence,
		Source:     source,
		SourceID:   sourceID,
	}, nil
}
