package extract

import (
	"strconv"
	"strings"

	"github.com/tbxark/fieldagent/definition"
	"github.com/tbxark/fieldagent/errx"
)

// Coerce normalizes a raw candidate into the canonical stored form for the
// field kind. Stored values are always strings so that templates, patches
// and checkpoints stay format stable.
func Coerce(kind definition.Kind, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case definition.KindEmail:
		return strings.ToLower(value), nil
	case definition.KindNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", errx.Newf(errx.KindValidation, "%q is not a number", value)
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case definition.KindBoolean:
		if v, ok := matchBoolean(value); ok {
			return v, nil
		}
		return "", errx.Newf(errx.KindValidation, "%q is not a yes/no answer", value)
	default:
		return value, nil
	}
}
