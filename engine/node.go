package engine

import (
	"github.com/tbxark/fieldagent/errx"
)

// Node identifies one processing step of a turn.
type Node string

const (
	// NodeEntry is the virtual start of every turn; the router picks the
	// first real node from it.
	NodeEntry Node = "entry"
	// NodeGreeting opens a fresh session.
	NodeGreeting Node = "greeting"
	// NodeIntentDetection decides whether a question-shaped message is an
	// answer or a diversion.
	NodeIntentDetection Node = "intent_detection"
	// NodeAnswer handles one Q&A question.
	NodeAnswer Node = "answer"
	// NodeContinuation decides what to do with a message while Q&A mode is
	// active.
	NodeContinuation Node = "continuation"
	// NodeFieldExtraction pulls values out of the message.
	NodeFieldExtraction Node = "field_extraction"
	// NodeFieldRouter picks the next field or moves to confirmation.
	NodeFieldRouter Node = "field_router"
	// NodeQuestion renders the next question.
	NodeQuestion Node = "question"
	// NodeConfirmationSummary shows the summary and suspends.
	NodeConfirmationSummary Node = "confirmation_summary"
	// NodeConfirmationResponse reads the reply to the summary.
	NodeConfirmationResponse Node = "confirmation_response"
	// NodeModification applies a requested change.
	NodeModification Node = "modification"
	// NodeCompletion renders the template and dispatches the action.
	NodeCompletion Node = "completion"
	// NodeCancel abandons the session.
	NodeCancel Node = "cancel"
)

// validTransitions is the closed edge set of the conversation graph. A
// handler that tries to leave it is a bug, surfaced as an invariant error
// rather than silently executed.
var validTransitions = map[Node][]Node{
	NodeEntry: {
		NodeGreeting, NodeConfirmationResponse, NodeContinuation,
		NodeIntentDetection, NodeFieldExtraction,
	},
	NodeGreeting:             {NodeFieldRouter},
	NodeIntentDetection:      {NodeFieldExtraction, NodeAnswer, NodeCancel},
	NodeContinuation:         {NodeAnswer, NodeFieldExtraction, NodeQuestion},
	NodeFieldExtraction:      {NodeFieldRouter, NodeQuestion},
	NodeFieldRouter:          {NodeQuestion, NodeConfirmationSummary},
	NodeConfirmationResponse: {NodeCompletion, NodeModification},
	NodeModification:         {NodeConfirmationSummary, NodeQuestion, NodeFieldRouter},
}

// CanTransition reports whether from may hand off to to.
func CanTransition(from, to Node) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transitionErr(from, to Node) error {
	return errx.Newf(errx.KindInvariant, "illegal transition %s -> %s", from, to)
}
