package backend_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lingominer/backend"
)

// newServer fakes an OpenAI-compatible endpoint for one test.
func newServer(t *testing.T, handler http.HandlerFunc) *backend.OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewOpenAI(backend.Config{
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	})
}

func TestOpenAIComplete(t *testing.T) {
	var gotReq map[string]any
	b := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"word\":\"Titan\"}"}}]}`))
	})

	out, err := b.Complete(context.Background(), "Extract the word")
	require.NoError(t, err)
	assert.Equal(t, `{"word":"Titan"}`, out)

	assert.Equal(t, "gpt-4o-mini", gotReq["model"])
	rf, ok := gotReq["response_format"].(map[string]any)
	require.True(t, ok, "request carries a response_format")
	assert.Equal(t, "json_object", rf["type"])
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	b := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := b.Complete(context.Background(), "prompt")
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAICompleteHTTPError(t *testing.T) {
	b := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
	})

	_, err := b.Complete(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestOpenAISynthesize(t *testing.T) {
	audio := []byte{0x49, 0x44, 0x33, 0x04}
	b := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tts-1", req["model"])
		assert.Equal(t, "Titan is largest.", req["input"])
		assert.Equal(t, "alloy", req["voice"])
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio)
	})

	got, err := b.Synthesize(context.Background(), "Titan is largest.", "alloy")
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestOpenAIGenerate(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G'}
	b := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dall-e-3", req["model"])
		assert.Equal(t, "b64_json", req["response_format"])
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(image)}},
		})
	})

	got, err := b.Generate(context.Background(), "A moon over Saturn")
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestOpenAIGenerateNoData(t *testing.T) {
	b := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := b.Generate(context.Background(), "prompt")
	assert.ErrorContains(t, err, "no data")
}
