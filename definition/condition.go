package definition

import (
	"fmt"
	"strings"
)

// Condition is a parsed field activation rule of the form
// "field == value" or "field != value". Comparison is case insensitive.
type Condition struct {
	Field   string
	Value   string
	Negated bool
}

// ParseCondition parses the textual form used in agent definitions.
func ParseCondition(expr string) (Condition, error) {
	op := "=="
	negated := false
	if strings.Contains(expr, "!=") {
		op = "!="
		negated = true
	} else if !strings.Contains(expr, "==") {
		return Condition{}, fmt.Errorf("condition %q: expected == or !=", expr)
	}
	parts := strings.SplitN(expr, op, 2)
	field := strings.TrimSpace(parts[0])
	value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
	if field == "" || value == "" {
		return Condition{}, fmt.Errorf("condition %q: empty operand", expr)
	}
	return Condition{Field: field, Value: value, Negated: negated}, nil
}

// Eval reports whether the condition holds for the collected values. A
// condition on a field that has no value yet evaluates to false, so
// dependent fields only activate once their anchor is known.
func (c Condition) Eval(collected map[string]string) bool {
	got, ok := collected[c.Field]
	if !ok {
		return false
	}
	equal := strings.EqualFold(strings.TrimSpace(got), c.Value)
	if c.Negated {
		return !equal
	}
	return equal
}

func (c Condition) String() string {
	op := "=="
	if c.Negated {
		op = "!="
	}
	return fmt.Sprintf("%s %s %s", c.Field, op, c.Value)
}
