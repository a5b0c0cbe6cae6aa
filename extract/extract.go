// Package extract resolves field values from user messages. Extraction is
// dual path: a deterministic pattern pass handles unambiguous formats
// without a model call, and a structured model call covers everything the
// patterns cannot.
package extract

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tbxark/fieldagent/definition"
)

// Source records which path produced a candidate.
type Source string

const (
	SourceFast  Source = "fast"
	SourceModel Source = "model"
)

// Candidate is an extracted value before validation and commit.
type Candidate struct {
	Field      string
	Value      string
	Confidence float64
	Source     Source
}

// Request carries everything an extractor may use for one message.
type Request struct {
	Message string
	// Expected is the field the pending question asked for, nil when the
	// conversation is not waiting on a specific field.
	Expected *definition.FieldSpec
	// Missing are all still uncollected active fields, expected first.
	Missing []*definition.FieldSpec
	// ValidationErrors are the previous turn's rejections, keyed by field.
	ValidationErrors map[string]string
}

// Extractor produces candidates for a request. An empty slice with a nil
// error means the message carried no recognizable value.
type Extractor interface {
	Extract(ctx context.Context, req Request) ([]Candidate, error)
}

// Dual runs the pattern pass first and falls back to the model only when
// the pattern pass cannot resolve the expected field.
type Dual struct {
	Fast   *FastExtractor
	Model  Extractor
	Logger zerolog.Logger
}

func NewDual(fast *FastExtractor, model Extractor, logger zerolog.Logger) *Dual {
	return &Dual{Fast: fast, Model: model, Logger: logger}
}

func (d *Dual) Extract(ctx context.Context, req Request) ([]Candidate, error) {
	fast := d.fastPass(req)
	if d.Model == nil || resolved(fast, req.Expected) {
		return fast, nil
	}
	candidates, err := d.Model.Extract(ctx, req)
	if err != nil {
		return nil, err
	}
	d.Logger.Debug().
		Int("candidates", len(candidates)).
		Str("source", string(SourceModel)).
		Msg("model extraction finished")
	return mergeCandidates(fast, candidates), nil
}

// fastPass runs the pattern pass over the expected field plus every other
// missing field whose format is distinctive enough to scan a sentence for
// (emails, phones, custom patterns). Free-text and boolean kinds are only
// tried as the expected field, where the whole message is the answer.
func (d *Dual) fastPass(req Request) []Candidate {
	if d.Fast == nil {
		return nil
	}
	var candidates []Candidate
	seen := make(map[string]bool)
	tryField := func(spec *definition.FieldSpec) {
		if spec == nil || seen[spec.Name] {
			return
		}
		seen[spec.Name] = true
		if value, ok := d.Fast.Extract(req.Message, spec); ok {
			d.Logger.Debug().
				Str("field", spec.Name).
				Str("source", string(SourceFast)).
				Msg("fast path extracted value")
			candidates = append(candidates, Candidate{
				Field:      spec.Name,
				Value:      value,
				Confidence: 1,
				Source:     SourceFast,
			})
		}
	}
	tryField(req.Expected)
	for _, spec := range req.Missing {
		if scannable(spec) {
			tryField(spec)
		}
	}
	return candidates
}

func scannable(spec *definition.FieldSpec) bool {
	if len(spec.Patterns) > 0 {
		return true
	}
	switch spec.Kind {
	case definition.KindEmail, definition.KindPhone:
		return true
	default:
		return false
	}
}

func resolved(candidates []Candidate, expected *definition.FieldSpec) bool {
	if expected == nil {
		return len(candidates) > 0
	}
	for _, c := range candidates {
		if c.Field == expected.Name {
			return true
		}
	}
	return false
}

// mergeCandidates keeps every fast candidate and adds model candidates for
// fields the fast pass did not cover.
func mergeCandidates(fast, model []Candidate) []Candidate {
	if len(fast) == 0 {
		return model
	}
	covered := make(map[string]bool, len(fast))
	for _, c := range fast {
		covered[c.Field] = true
	}
	merged := fast
	for _, c := range model {
		if !covered[c.Field] {
			merged = append(merged, c)
		}
	}
	return merged
}
