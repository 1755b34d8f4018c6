package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	text  string
	err   error
	calls int
	last  Request
}

func (f *fakeClient) Generate(_ context.Context, req Request) (*Result, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Text: f.text}, nil
}

func TestRouter_Route(t *testing.T) {
	r := NewRouter(map[string]int{"a": 1, "b": 2}, "a")

	v, name, err := r.Route("b")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, "b", name)

	v, name, err = r.Route("missing")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, "a", name)

	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("missing"))
	assert.Equal(t, []string{"a", "b"}, r.Engines())
}

func TestRouter_NoFallback(t *testing.T) {
	r := NewRouter[int](nil, "none")
	_, _, err := r.Route("x")
	assert.Error(t, err)
}

func TestStructuredRouter_Generate(t *testing.T) {
	gemini := &fakeClient{text: `{"ok":true}`}
	openai := &fakeClient{err: errors.New("quota")}
	r := NewStructuredRouter(map[string]StructuredClient{"gemini": gemini, "openai": openai}, "gemini")

	res, err := r.Generate(context.Background(), "", Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Engine)
	assert.Equal(t, "p", gemini.last.Prompt)

	_, err = r.Generate(context.Background(), "openai", Request{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: quota")
}

func TestDecode(t *testing.T) {
	type out struct {
		Questions []string `json:"questions"`
	}

	tests := []struct {
		name    string
		text    string
		want    []string
		wantErr bool
	}{
		{"plain", `{"questions":["a","b"]}`, []string{"a", "b"}, false},
		{"fenced", "```json\n{\"questions\":[\"a\"]}\n```", []string{"a"}, false},
		{"empty", "   ", nil, true},
		{"garbage", "not json", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[out](&Result{Text: tt.text})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Questions)
		})
	}

	_, err := Decode[out](nil)
	assert.Error(t, err)
}

func TestSchema_Map(t *testing.T) {
	s := Object(
		Prop("score", Integer("0-100", 0, 100)),
		Prop("tags", Array("tags", String(""), 2)),
		Prop("kind", Enum("", "a", "b")),
	)
	m := s.Map()

	assert.Equal(t, "object", m["type"])
	assert.Equal(t, false, m["additionalProperties"])
	assert.Equal(t, []string{"score", "tags", "kind"}, m["required"])

	props := m["properties"].(map[string]any)
	assert.Equal(t, "integer", props["score"].(map[string]any)["type"])
	assert.Equal(t, []string{"a", "b"}, props["kind"].(map[string]any)["enum"])

	var roundTrip map[string]any
	require.NoError(t, json.Unmarshal([]byte(s.JSON()), &roundTrip))
	assert.Equal(t, "object", roundTrip["type"])
}

func TestSchema_Genai(t *testing.T) {
	s := Object(
		Prop("b", String("")),
		Prop("a", Array("", Integer("", 0, 100), 0)),
	)
	g := s.Genai()

	assert.Equal(t, []string{"b", "a"}, g.PropertyOrdering)
	assert.Equal(t, []string{"b", "a"}, g.Required)
	require.NotNil(t, g.Properties["a"].Items)
	assert.Equal(t, 100.0, *g.Properties["a"].Items.Maximum)
	assert.Nil(t, g.Properties["a"].MinItems)
}

func TestAgentInstructions(t *testing.T) {
	got := agentInstructions(Request{System: "be strict", Schema: Object(Prop("x", String("")))})
	assert.Contains(t, got, "be strict")
	assert.Contains(t, got, `"additionalProperties": false`)

	assert.Equal(t, "only system", agentInstructions(Request{System: "only system"}))
}

func TestOpenAIClient_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"logprobs": null,
				"message": {"role": "assistant", "content": "{\"questions\":[\"q1\"]}", "refusal": null}
			}]
		}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL+"/v1", "gpt-4o-mini", 256, NewPooledHTTPClient(2, 5*time.Second))
	res, err := c.Generate(context.Background(), Request{
		System:     "sys",
		Prompt:     "prompt",
		SchemaName: "questions",
		Schema:     Object(Prop("questions", Array("", String(""), 0))),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"questions":["q1"]}`, res.Text)

	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "questions", schema["name"])
	assert.Equal(t, true, schema["strict"])
	assert.Len(t, body["messages"], 2)
}
