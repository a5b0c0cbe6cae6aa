package intent

import (
	"context"
	"regexp"
	"strings"
)

var questionStarters = []string{
	"what", "how", "why", "when", "where", "who", "which",
	"can", "could", "would", "should", "do", "does", "did",
	"is", "are", "will", "am i", "tell me",
}

// HasQuestionIndicators is the cheap gate the router uses to decide whether
// a message even needs intent classification.
func HasQuestionIndicators(message string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(message))
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "?") {
		return true
	}
	for _, starter := range questionStarters {
		if strings.HasPrefix(trimmed, starter+" ") {
			return true
		}
	}
	return false
}

var cancelWords = []string{"cancel", "quit", "exit", "stop", "abort", "never mind", "nevermind", "forget it"}

// IsCancelPhrase reports whether the message is a bare cancellation. The
// router checks it because cancellations are not question shaped.
func IsCancelPhrase(message string) bool {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(message), ".!"))
	for _, w := range cancelWords {
		if normalized == w {
			return true
		}
	}
	return false
}

// LocalIntentClassifier decides by keywords alone. Messages it cannot read
// defer to the model.
type LocalIntentClassifier struct{}

func (LocalIntentClassifier) Classify(_ context.Context, req Request) (Intent, error) {
	normalized := strings.ToLower(strings.TrimSpace(req.Message))
	for _, w := range cancelWords {
		if normalized == w {
			return IntentCancel, nil
		}
	}
	if strings.HasSuffix(normalized, "?") {
		return IntentQuestion, nil
	}
	if HasQuestionIndicators(normalized) {
		// A question-shaped opener without a question mark could still be
		// an answer ("when I was born... 1990"), let the model read it.
		return "", ErrUnclassified
	}
	return IntentAnswer, nil
}

var resumePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(let'?s )?(continue|resume|proceed)\b`),
	regexp.MustCompile(`(?i)\bback to (the )?(form|questions?|task)\b`),
	regexp.MustCompile(`(?i)\b(no more|done with) questions?\b`),
	regexp.MustCompile(`(?i)^(ok(ay)?|alright|ready)[.!]*$`),
}

// LocalContinuationClassifier reads the message while Q&A is active.
type LocalContinuationClassifier struct{}

func (LocalContinuationClassifier) Classify(_ context.Context, req Request) (Continuation, error) {
	for _, re := range resumePatterns {
		if re.MatchString(req.Message) {
			return ContinuationResume, nil
		}
	}
	if HasQuestionIndicators(req.Message) {
		return ContinuationAskMore, nil
	}
	return "", ErrUnclassified
}

var approveWords = []string{
	"yes", "yeah", "yep", "yup", "correct", "right", "confirm", "confirmed",
	"looks good", "all good", "perfect", "sure", "ok", "okay", "that's right",
	"submit", "done", "good",
}

var modifyHints = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(change|update|modify|edit|fix|correct)\b`),
	regexp.MustCompile(`(?i)\b(wrong|incorrect|mistake|not right)\b`),
	regexp.MustCompile(`(?i)\b(actually|should be)\b`),
	regexp.MustCompile(`(?i)^no\b`),
}

// LocalConfirmationClassifier reads a response to the summary by keywords.
type LocalConfirmationClassifier struct{}

func (LocalConfirmationClassifier) Classify(_ context.Context, req Request) (Confirmation, error) {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(req.Message), ".!"))
	for _, w := range approveWords {
		if normalized == w {
			return ConfirmationApprove, nil
		}
	}
	for _, re := range modifyHints {
		if re.MatchString(req.Message) {
			return ConfirmationModify, nil
		}
	}
	// Mentioning a field by name in the confirmation phase is a change
	// request even without a change verb.
	lower := strings.ToLower(req.Message)
	for _, name := range req.FieldNames {
		if strings.Contains(lower, strings.ToLower(strings.ReplaceAll(name, "_", " "))) {
			return ConfirmationModify, nil
		}
	}
	return "", ErrUnclassified
}
