package logger

import (
	"net/http"
	"strings"
)

var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"signature",
	"email",
	"authorization",
}

// MaskEmail renders a donor email for any externally visible surface:
// first char + "***" + last char of the local part, domain preserved.
// Local parts of length <= 2 collapse to first char + "***".
func MaskEmail(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	local, domain, found := strings.Cut(value, "@")
	if !found || domain == "" {
		return value
	}
	var masked string
	if len(local) <= 2 {
		masked = local[:1] + "***"
	} else {
		masked = local[:1] + "***" + local[len(local)-1:]
	}
	return masked + "@" + domain
}

// MaskSignature masks webhook signature headers, keeping the last 4 chars.
func MaskSignature(value string) string {
	return maskLast4(strings.TrimSpace(value))
}

// MaskHeaders returns a copy of headers with sensitive fields masked.
func MaskHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	masked := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ",")
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "authorization", "stripe-signature", "cookie":
			masked[key] = maskLast4(joined)
		default:
			masked[key] = joined
		}
	}
	return masked
}

// MaskJSON returns a deep-copied map with sensitive fields masked. Email
// fields keep their mask format so log lines stay correlatable.
func MaskJSON(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		if isSensitiveKey(key) {
			out[key] = maskValue(key, value)
			continue
		}
		out[key] = maskJSONValue(value)
	}
	return out
}

func maskJSONValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return MaskJSON(typed)
	case []any:
		items := make([]any, 0, len(typed))
		for _, entry := range typed {
			items = append(items, maskJSONValue(entry))
		}
		return items
	default:
		return value
	}
}

func maskValue(key string, value any) any {
	text, ok := value.(string)
	if !ok {
		return "****"
	}
	if strings.Contains(strings.ToLower(key), "email") {
		return MaskEmail(text)
	}
	return maskLast4(text)
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range sensitiveKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

func maskLast4(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}
