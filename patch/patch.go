// Package patch turns a field modification request into RFC6902 operations
// over the collected-fields document and applies them. The document is a
// flat object keyed by field name, so every legal path is "/<field>".
package patch

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/tbxark/fieldagent/errx"
)

const (
	OperationAdd     = "add"
	OperationReplace = "replace"
	OperationRemove  = "remove"
)

// Operation is a single RFC6902 operation.
type Operation struct {
	Op    string `json:"op" jsonschema:"description=add, replace or remove"`
	Path  string `json:"path" jsonschema:"description=the field path, e.g. /email"`
	Value any    `json:"value,omitempty" jsonschema:"description=the new value for add and replace"`
}

// FieldPath renders the document path for a field name.
func FieldPath(field string) string {
	return "/" + field
}

// FieldFromPath is the inverse of FieldPath; it rejects nested paths since
// the document is flat.
func FieldFromPath(path string) (string, bool) {
	if !strings.HasPrefix(path, "/") {
		return "", false
	}
	field := path[1:]
	if field == "" || strings.Contains(field, "/") {
		return "", false
	}
	return field, true
}

// ValidateOperations rejects any operation outside the allowed field set.
// A model must never be able to write fields the agent does not define.
func ValidateOperations(ops []Operation, allowedFields []string) error {
	allowed := make(map[string]bool, len(allowedFields))
	for _, f := range allowedFields {
		allowed[FieldPath(f)] = true
	}
	for i, op := range ops {
		switch op.Op {
		case OperationAdd, OperationReplace, OperationRemove:
		default:
			return errx.Newf(errx.KindValidation, "operation %d: unsupported op %q", i, op.Op)
		}
		if !allowed[op.Path] {
			return errx.Newf(errx.KindValidation, "operation %d: path %q is not a known field", i, op.Path)
		}
	}
	return nil
}

// Apply runs the operations over the collected fields and returns the new
// document plus the set of changed field names. Replace on a missing field
// downgrades to add, and remove of a missing field is dropped, so a model
// that mislabels the operation still produces the intended result.
func Apply(collected map[string]string, ops []Operation) (map[string]string, []string, error) {
	if len(ops) == 0 {
		return collected, nil, nil
	}
	fixed := fixOperations(collected, ops)
	if len(fixed) == 0 {
		return collected, nil, nil
	}

	currentJSON, err := sonic.Marshal(collected)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal collected fields: %w", err)
	}
	patchJSON, err := sonic.Marshal(fixed)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal operations: %w", err)
	}
	decoded, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, nil, errx.Wrap(errx.KindValidation, "invalid patch", err)
	}
	modifiedJSON, err := decoded.Apply(currentJSON)
	if err != nil {
		return nil, nil, errx.Wrap(errx.KindValidation, "patch failed to apply", err)
	}
	var result map[string]string
	if err := sonic.Unmarshal(modifiedJSON, &result); err != nil {
		return nil, nil, errx.Wrap(errx.KindValidation, "patch produced a non-string value", err)
	}

	changed := make([]string, 0, len(fixed))
	for _, op := range fixed {
		if field, ok := FieldFromPath(op.Path); ok {
			changed = append(changed, field)
		}
	}
	return result, changed, nil
}

func fixOperations(collected map[string]string, ops []Operation) []Operation {
	fixed := make([]Operation, 0, len(ops))
	for _, op := range ops {
		field, ok := FieldFromPath(op.Path)
		if !ok {
			fixed = append(fixed, op)
			continue
		}
		_, exists := collected[field]
		switch op.Op {
		case OperationReplace:
			if !exists {
				op.Op = OperationAdd
			}
			fixed = append(fixed, op)
		case OperationRemove:
			if exists {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}
	return fixed
}
