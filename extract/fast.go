package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/tbxark/fieldagent/definition"
)

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`[+]?[\d][\d\s().-]{5,}[\d]`)
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	digitOnly     = regexp.MustCompile(`\d`)
	namePattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z'.-]*$`)
	namePrefix    = regexp.MustCompile(`(?i)\b(?:my name is|name'?s|call me)\s+([a-zA-Z][a-zA-Z'.-]*(?:\s+[a-zA-Z][a-zA-Z'.-]*){0,3})`)
)

var yesWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"ok": true, "okay": true, "correct": true, "right": true, "definitely": true,
	"absolutely": true, "true": true,
}

var noWords = map[string]bool{
	"no": true, "nope": true, "nah": true, "never": true, "negative": true,
	"false": true, "incorrect": true, "wrong": true,
}

// FastExtractor is the deterministic pattern pass. It is stateless and
// safe for concurrent use; custom per-field patterns are compiled once and
// cached.
type FastExtractor struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

func NewFastExtractor() *FastExtractor {
	return &FastExtractor{compiled: make(map[string]*regexp.Regexp)}
}

// Extract tries to resolve the field from the message without a model.
// Custom definition patterns run before the kind's builtin pattern. The
// boolean false return means "not resolvable here", never "invalid".
func (e *FastExtractor) Extract(message string, field *definition.FieldSpec) (string, bool) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", false
	}
	for _, pattern := range field.Patterns {
		re, err := e.compile(pattern)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(message); m != nil {
			if len(m) > 1 && m[1] != "" {
				return strings.TrimSpace(m[1]), true
			}
			return strings.TrimSpace(m[0]), true
		}
	}
	switch field.Kind {
	case definition.KindEmail:
		if m := emailPattern.FindString(message); m != "" {
			return strings.ToLower(m), true
		}
	case definition.KindPhone:
		if m := phonePattern.FindString(message); m != "" {
			digits := digitOnly.FindAllString(m, -1)
			if len(digits) >= 7 && len(digits) <= 15 {
				return m, true
			}
		}
	case definition.KindNumber:
		if m := numberPattern.FindString(message); m != "" {
			return m, true
		}
	case definition.KindBoolean:
		return matchBoolean(message)
	case definition.KindName:
		return matchName(message)
	}
	return "", false
}

func (e *FastExtractor) compile(pattern string) (*regexp.Regexp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.compiled[pattern] = re
	return re, nil
}

func matchBoolean(message string) (string, bool) {
	word := strings.ToLower(strings.TrimRight(strings.TrimSpace(message), ".!,"))
	if yesWords[word] {
		return "yes", true
	}
	if noWords[word] {
		return "no", true
	}
	return "", false
}

// matchName accepts a message that is nothing but one to four name words,
// or a sentence with an introduction like "my name is Ann". Anything else
// goes to the model, which can pull a name out of arbitrary prose.
func matchName(message string) (string, bool) {
	if m := namePrefix.FindStringSubmatch(message); m != nil {
		words := strings.Fields(m[1])
		// The capture has no way to know where the name ends mid-sentence;
		// keep the leading capitalized run, or just the first word.
		name := leadingCapitalized(words)
		if len(name) == 0 {
			name = words[:1]
		}
		return titleWords(name), true
	}
	words := strings.Fields(strings.TrimRight(message, ".!,"))
	if len(words) == 0 || len(words) > 4 {
		return "", false
	}
	for _, w := range words {
		if !namePattern.MatchString(w) {
			return "", false
		}
	}
	return titleWords(words), true
}

func leadingCapitalized(words []string) []string {
	n := 0
	for _, w := range words {
		if w[0] < 'A' || w[0] > 'Z' {
			break
		}
		n++
	}
	return words[:n]
}

func titleWords(words []string) string {
	titled := make([]string, 0, len(words))
	for _, w := range words {
		titled = append(titled, strings.ToUpper(w[:1])+w[1:])
	}
	return strings.Join(titled, " ")
}
