// Package intent classifies user messages at the decision points of a
// conversation: is this an answer or a question, does the user want to keep
// asking questions or resume, and does a confirmation response approve the
// summary. Each decision has a keyword classifier and a model classifier,
// composed so the keyword pass answers the cheap cases and the model only
// sees what keywords cannot settle.
package intent

import (
	"context"
	"errors"
)

// ErrUnclassified is returned by a classifier that cannot decide, signaling
// the failback chain to try the next one.
var ErrUnclassified = errors.New("intent: unclassified")

// Intent is the top-level reading of a message while a field is pending.
type Intent string

const (
	// IntentAnswer means the message is answering the pending question.
	IntentAnswer Intent = "answer"
	// IntentQuestion means the user is asking something instead.
	IntentQuestion Intent = "question"
	// IntentCancel means the user wants to abandon the conversation.
	IntentCancel Intent = "cancel"
)

// Continuation is the reading of a message while Q&A mode is active.
type Continuation string

const (
	// ContinuationAskMore means the user has another question.
	ContinuationAskMore Continuation = "ask_more"
	// ContinuationResume means the user wants to go back to the form.
	ContinuationResume Continuation = "resume"
	// ContinuationAnswer means the message already answers the suspended
	// field question.
	ContinuationAnswer Continuation = "answer"
)

// Confirmation is the reading of a response to the summary.
type Confirmation string

const (
	// ConfirmationApprove accepts the summary as correct.
	ConfirmationApprove Confirmation = "approve"
	// ConfirmationModify rejects the summary and asks for a change.
	ConfirmationModify Confirmation = "modify"
	// ConfirmationUnclear is neither; the engine re-asks.
	ConfirmationUnclear Confirmation = "unclear"
)

// Request is the classification input shared by all classifiers.
type Request struct {
	Message string
	// ExpectedField names the field the pending question asked for.
	ExpectedField string
	// FieldNames lists all fields in the agent, for modification detection.
	FieldNames []string
}

// Classifier decides one value of T for a message.
type Classifier[T any] interface {
	Classify(ctx context.Context, req Request) (T, error)
}

// Failback runs classifiers in order, returning the first decision. A
// classifier that cannot decide returns ErrUnclassified and the next one
// runs. When every classifier declines, the zero fallback value and the
// last error are returned.
type Failback[T any] struct {
	classifiers []Classifier[T]
	fallback    T
}

func NewFailback[T any](fallback T, classifiers ...Classifier[T]) *Failback[T] {
	return &Failback[T]{classifiers: classifiers, fallback: fallback}
}

func (f *Failback[T]) Classify(ctx context.Context, req Request) (T, error) {
	var lastErr error
	for _, c := range f.classifiers {
		result, err := c.Classify(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return f.fallback, lastErr
}
