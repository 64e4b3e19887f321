package observability

import (
	"encoding/json"
	"strings"
	"unicode"
)

const redactedPlaceholder = "***"

// credentialWords are the trailing words of a key name that mark its value
// as a credential: "api_key", "apiKey" and "ACCESS-TOKEN" all end in one.
var credentialWords = map[string]struct{}{
	"key": {}, "token": {}, "secret": {}, "password": {},
	"passwd": {}, "credential": {}, "credentials": {},
}

// exactKeys match on the whole key regardless of word boundaries.
var exactKeys = map[string]struct{}{
	"authorization": {}, "auth": {}, "bearer": {},
	"cookie": {}, "apikey": {},
}

// Redactor masks values whose key names look like credentials before a JSON
// payload is attached to a log event. Keys are split into words on
// separators and camelCase boundaries, so the match is structural rather
// than substring-based ("author" and "monkey" pass through untouched).
type Redactor struct {
	extra map[string]struct{}
}

// NewRedactor builds a Redactor recognizing the built-in credential keys
// plus any extra exact key names the deployment configures.
func NewRedactor(extraKeys ...string) *Redactor {
	r := &Redactor{extra: make(map[string]struct{}, len(extraKeys))}
	for _, k := range extraKeys {
		r.extra[strings.Join(keyWords(k), "")] = struct{}{}
	}
	return r
}

// JSON returns raw with every credential-keyed value replaced by a
// placeholder. Payloads that do not decode as JSON pass through unchanged.
func (r *Redactor) JSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return raw
	}
	clean, err := json.Marshal(r.walk(doc))
	if err != nil {
		return raw
	}
	return clean
}

func (r *Redactor) walk(node any) any {
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			if r.sensitive(k) {
				out[k] = redactedPlaceholder
				continue
			}
			out[k] = r.walk(v)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = r.walk(v)
		}
		return out
	default:
		return node
	}
}

func (r *Redactor) sensitive(key string) bool {
	words := keyWords(key)
	if len(words) == 0 {
		return false
	}
	joined := strings.Join(words, "")
	if _, ok := exactKeys[joined]; ok {
		return true
	}
	if _, ok := r.extra[joined]; ok {
		return true
	}
	_, ok := credentialWords[words[len(words)-1]]
	return ok
}

// keyWords splits a key name into lowercase words on separator characters
// and lower-to-upper camelCase boundaries.
func keyWords(key string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			words = append(words, strings.ToLower(b.String()))
			b.Reset()
		}
	}
	var prev rune
	for _, c := range key {
		switch {
		case c == '-' || c == '_' || c == '.' || c == ' ':
			flush()
		case unicode.IsUpper(c) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
		prev = c
	}
	flush()
	return words
}

var processRedactor = NewRedactor()

// ConfigureRedaction replaces the process-wide redactor with one that also
// recognizes the given exact key names. Call once at startup, before
// request traffic.
func ConfigureRedaction(extraKeys ...string) {
	processRedactor = NewRedactor(extraKeys...)
}

// RedactJSON applies the process-wide redactor.
func RedactJSON(raw json.RawMessage) json.RawMessage {
	return processRedactor.JSON(raw)
}
