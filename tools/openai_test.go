package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeProvider(t *testing.T, reply string, status int, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClientComplete(t *testing.T) {
	var seen map[string]interface{}
	srv := fakeProvider(t, "  hello there  ", http.StatusOK, &seen)

	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "test-model"}, nil)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), CompletionRequest{
		Operation: "chat",
		System:    "be brief",
		Messages:  []ChatTurn{{Content: "hi"}},
		JSON:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	assert.Equal(t, "test-model", seen["model"])
	msgs, _ := seen["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	assert.Equal(t, "user", msgs[1].(map[string]interface{})["role"])
	assert.NotNil(t, seen["response_format"])
}

func TestOpenAIClientProviderError(t *testing.T) {
	srv := fakeProvider(t, "", http.StatusInternalServerError, nil)
	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "m"}, nil)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), CompletionRequest{Operation: "summarize", Messages: []ChatTurn{{Content: "x"}}})
	assert.Error(t, err)
}

func TestOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{}, nil)
	assert.ErrorIs(t, err, ErrLLMNotConfigured)
}
