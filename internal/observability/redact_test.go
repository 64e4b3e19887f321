package observability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactJSON_SimpleAndNested(t *testing.T) {
	in := map[string]any{
		"api_key": "secret123",
		"user": map[string]any{
			"name":     "alice",
			"password": "hunter2",
		},
		"items": []any{
			map[string]any{"accessToken": "tok"},
			"plain",
		},
		"note": "keepme",
	}
	b, _ := json.Marshal(in)
	out := RedactJSON(b)

	var v map[string]any
	require.NoError(t, json.Unmarshal(out, &v))

	assert.Equal(t, "***", v["api_key"])
	assert.Equal(t, "keepme", v["note"])

	user := v["user"].(map[string]any)
	assert.Equal(t, "***", user["password"])
	assert.Equal(t, "alice", user["name"])

	items := v["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "***", first["accessToken"])
	assert.Equal(t, "plain", items[1])
}

func TestRedactJSON_MatchesWordsNotSubstrings(t *testing.T) {
	in := map[string]any{
		"author":        "bob",
		"monkey":        "bongo",
		"Authorization": "Bearer abc",
		"X-Api-Key":     "k",
	}
	b, _ := json.Marshal(in)

	var v map[string]any
	require.NoError(t, json.Unmarshal(RedactJSON(b), &v))

	assert.Equal(t, "bob", v["author"])
	assert.Equal(t, "bongo", v["monkey"])
	assert.Equal(t, "***", v["Authorization"])
	assert.Equal(t, "***", v["X-Api-Key"])
}

func TestRedactor_ExtraKeys(t *testing.T) {
	r := NewRedactor("voice_sample")
	b, _ := json.Marshal(map[string]any{"voiceSample": "pcm", "slideText": "hi"})

	var v map[string]any
	require.NoError(t, json.Unmarshal(r.JSON(b), &v))

	assert.Equal(t, "***", v["voiceSample"])
	assert.Equal(t, "hi", v["slideText"])
}

func TestRedactJSON_NotJSONPassesThrough(t *testing.T) {
	raw := json.RawMessage("not json")
	assert.Equal(t, raw, RedactJSON(raw))
}

func TestRedactJSON_EmptyPassesThrough(t *testing.T) {
	assert.Empty(t, RedactJSON(nil))
}
