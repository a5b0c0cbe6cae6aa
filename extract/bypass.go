package extract

import (
	"regexp"
	"strings"
)

// BypassDecision is the outcome of the skip detector.
type BypassDecision int

const (
	// BypassNo means the message is a normal answer.
	BypassNo BypassDecision = iota
	// BypassYes means the user clearly declined the field.
	BypassYes
	// BypassUnsure means the message hints at declining but needs the
	// model to decide.
	BypassUnsure
)

var strongBypass = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(skip|pass|next)\s*[.!]*\s*$`),
	regexp.MustCompile(`(?i)^\s*no,?\s*thanks?( you)?\s*[.!]*\s*$`),
	regexp.MustCompile(`(?i)^\s*(none|nothing|n/?a)\s*[.!]*\s*$`),
	regexp.MustCompile(`(?i)\bprefer not to (say|answer|share)\b`),
	regexp.MustCompile(`(?i)\b(i'?d )?rather not\b`),
	regexp.MustCompile(`(?i)\bdon'?t (have|want to (say|share|answer))\b`),
	regexp.MustCompile(`(?i)\bthat'?s (all|it|everything)\b`),
	regexp.MustCompile(`(?i)\b(i'?m|i am) (done|finished)\b`),
	regexp.MustCompile(`(?i)\bno more\b`),
}

var weakBypass = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*no\b`),
	regexp.MustCompile(`(?i)\bnot (really|sure)\b`),
	regexp.MustCompile(`(?i)\bmaybe later\b`),
}

// DetectBypass classifies whether the message declines the pending field.
// Strong phrasings decide locally; weak ones defer to the model.
func DetectBypass(message string) BypassDecision {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return BypassNo
	}
	for _, re := range strongBypass {
		if re.MatchString(trimmed) {
			return BypassYes
		}
	}
	for _, re := range weakBypass {
		if re.MatchString(trimmed) {
			return BypassUnsure
		}
	}
	return BypassNo
}
