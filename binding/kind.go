package binding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/cognisphere/core"
)

// Kind is the target type of a bound parameter.
type Kind int

const (
	// KindAny accepts the blackboard value as stored.
	KindAny Kind = iota
	// KindString expects a string.
	KindString
	// KindInt expects an int within the 32-bit range.
	KindInt
	// KindInt64 expects an int64.
	KindInt64
	// KindFloat64 expects a float64.
	KindFloat64
	// KindBool expects a bool.
	KindBool
)

// String returns the lower case name used in declarative definitions.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a kind name to a Kind. Aliases such as "integer", "long",
// "double" and "boolean" are accepted. An empty name yields KindAny.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return KindAny, nil
	case "string", "str", "text":
		return KindString, nil
	case "int", "integer":
		return KindInt, nil
	case "int64", "long":
		return KindInt64, nil
	case "float64", "float", "double", "number":
		return KindFloat64, nil
	case "bool", "boolean":
		return KindBool, nil
	default:
		return KindAny, fmt.Errorf("%w: unsupported kind %q", core.ErrTypeCoercion, s)
	}
}

// Coerce converts a textual value into the target kind using standard
// textual parsing. Non-string values and KindAny targets pass through
// unchanged. Booleans accept the forms of strconv.ParseBool; anything else,
// such as "yes", is a coercion error.
func Coerce(value any, kind Kind) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}

	switch kind {
	case KindAny, KindString:
		return s, nil
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, coercionError(s, kind, err)
		}
		return int(n), nil
	case KindInt64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, coercionError(s, kind, err)
		}
		return n, nil
	case KindFloat64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, coercionError(s, kind, err)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, coercionError(s, kind, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", core.ErrTypeCoercion, kind)
	}
}

func coercionError(s string, kind Kind, err error) error {
	return fmt.Errorf("%w: cannot parse %q as %s: %v", core.ErrTypeCoercion, s, kind, err)
}
