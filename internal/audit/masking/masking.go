// Package masking redacts client contact details before they reach the activity log.
package masking

import "strings"

const maskToken = "****"

var contactKeys = map[string]struct{}{
	"phone": {},
	"email": {},
}

// MaskPhone keeps only the last four digits of a phone number.
func MaskPhone(value string) string {
	digits := make([]rune, 0, len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return ""
	}
	if len(digits) <= 4 {
		return maskToken
	}
	return maskToken + string(digits[len(digits)-4:])
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		if trimmed == "" {
			return ""
		}
		return maskToken
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}

// MaskJSON returns a copy of the input with contact fields masked at any depth.
func MaskJSON(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		if _, ok := contactKeys[strings.ToLower(key)]; !ok {
			return cast
		}
		if strings.EqualFold(key, "email") {
			return MaskEmail(cast)
		}
		return MaskPhone(cast)
	case map[string]any:
		return MaskJSON(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(key, item))
		}
		return out
	default:
		return value
	}
}
