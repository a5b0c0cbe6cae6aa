package patch

import (
	"regexp"
	"strings"
)

var changeToPattern = regexp.MustCompile(`(?i)\b(?:change|update|set|make|correct)\s+(?:my\s+|the\s+)?([\w ]+?)\s+(?:to|is|should be)\s+(.+?)\s*$`)

var bareValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bactually,?\s+(?:it'?s\s+)?(.+?)\s*$`),
	regexp.MustCompile(`(?i)\bit\s+should\s+be\s+(.+?)\s*$`),
	regexp.MustCompile(`(?i)\bit'?s\s+(.+?)\s*$`),
}

// ParseModification reads "change my email to x@y.com" phrasings without a
// model call. The hint field is used when the message names a new value but
// no field, e.g. "actually it's x@y.com" right after the email was
// discussed. A false return sends the request to the model generator.
func ParseModification(message string, fieldNames []string, hint string) ([]Operation, bool) {
	if m := changeToPattern.FindStringSubmatch(message); m != nil {
		if field, ok := resolveFieldName(m[1], fieldNames); ok {
			return []Operation{{Op: OperationReplace, Path: FieldPath(field), Value: strings.TrimSpace(m[2])}}, true
		}
	}
	if hint != "" {
		for _, re := range bareValuePatterns {
			if m := re.FindStringSubmatch(message); m != nil {
				return []Operation{{Op: OperationReplace, Path: FieldPath(hint), Value: strings.TrimSpace(m[1])}}, true
			}
		}
	}
	return nil, false
}

// resolveFieldName matches loose user phrasing ("full name") against the
// definition's snake_case names.
func resolveFieldName(raw string, fieldNames []string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	for _, name := range fieldNames {
		if normalized == strings.ToLower(name) {
			return name, true
		}
	}
	// Fall back to containment, "email" should match "contact_email".
	for _, name := range fieldNames {
		if strings.Contains(strings.ToLower(name), normalized) {
			return name, true
		}
	}
	return "", false
}
