package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a value while keeping its last four characters, e.g.
// a bank account number 1234567 becomes ****4567.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= 4 {
		return maskToken
	}
	return maskToken + string(runes[len(runes)-4:])
}

// MaskFields returns a copy of input with the string values under keys masked.
func MaskFields(input map[string]any, keys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}
	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[key] = struct{}{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitive[trimmedKey]; ok {
			if s, isString := value.(string); isString {
				masked[trimmedKey] = MaskSecret(s)
				continue
			}
		}
		masked[trimmedKey] = value
	}
	return masked
}
