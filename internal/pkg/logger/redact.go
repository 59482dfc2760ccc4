package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	redacted     = "[REDACTED]"
	maxTextValue = 512
)

// Keys containing any of these are replaced outright.
var redactSubstrings = []string{"token", "authorization", "password", "secret", "api_key", "apikey", "email"}

// Preference free text can be personal, so it is hashed like ids.
var hashKeys = map[string]bool{"goals": true, "topics": true}

// Raw model text is kept but clipped.
var clipKeys = map[string]bool{"raw": true, "output": true, "prompt": true, "response": true}

var (
	redactOnce       sync.Once
	redactionEnabled bool
	hashSalt         string
)

func redactionOn() bool {
	redactOnce.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
			redactionEnabled = false
		default:
			redactionEnabled = true
		}
		hashSalt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return redactionEnabled
}

func sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 || !redactionOn() {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, kv[i], sanitizeValue(normalizeKey(kv[i]), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func normalizeKey(k interface{}) string {
	return strings.ToLower(strings.TrimSpace(toString(k)))
}

func sanitizeValue(key string, val interface{}) interface{} {
	switch {
	case key == "":
	case shouldRedact(key):
		return redacted
	case hashKeys[key] || strings.Contains(key, "user_id"):
		return hashValue(val)
	case clipKeys[key]:
		if s, ok := val.(string); ok && len(s) > maxTextValue {
			return s[:maxTextValue] + "...(truncated)"
		}
	}
	switch v := val.(type) {
	case map[string]interface{}:
		if v == nil {
			return v
		}
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = sanitizeValue(normalizeKey(k), inner)
		}
		return out
	case []interface{}:
		if v == nil {
			return v
		}
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = sanitizeValue("", inner)
		}
		return out
	case string:
		if looksLikeJWT(v) || strings.HasPrefix(v, "sk-") {
			return redacted
		}
	}
	return val
}

func shouldRedact(key string) bool {
	for _, sub := range redactSubstrings {
		if strings.Contains(key, sub) {
			return true
		}
	}
	return false
}

// hashValue returns a short salted digest so log lines stay joinable per user.
func hashValue(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(hashSalt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
