package warehouse

import (
	"fmt"
	"math"
	"time"
)

// validIdentifier reports whether a name is safe to interpolate into SQL as
// an identifier. Matches the conservative alphanumeric-plus-underscore rule;
// anything else must go through parameter binding instead.
func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// normalizeValue converts a driver-returned value into a JSON-safe type for
// the tool result payload. NaN and infinities become null since JSON cannot
// represent them.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string, int64:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
