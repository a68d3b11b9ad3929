// File: internal/llmclient/gemini_client_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/axdriver/axdriver-cli/internal/config"
)

func newTestClient(t *testing.T, endpoint string) *GeminiClient {
	t.Helper()
	cfg := config.LLMConfig{
		APIKey:     "test-key",
		Endpoint:   endpoint,
		APITimeout: 5 * time.Second,
		MaxTokens:  1024,
	}
	client, err := NewGeminiClient(cfg, "gemini-2.5-flash", zap.NewNop())
	require.NoError(t, err)
	return client
}

func candidateResponse(text string) string {
	payload := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(config.LLMConfig{}, "gemini-2.5-flash", zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API Key")
}

func TestGenerate_Success(t *testing.T) {
	var captured geminiRequestPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Write([]byte(candidateResponse(`{"ok": true}`)))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	out, err := client.Generate(context.Background(), GenerationRequest{
		SystemPrompt:    "system",
		UserPrompt:      "user",
		ForceJSONFormat: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)

	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 1)
	assert.Equal(t, "user", captured.Contents[0].Parts[0].Text)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	require.NotNil(t, captured.SystemInstruction)
}

func TestGenerate_AttachesInlineImage(t *testing.T) {
	var captured geminiRequestPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Write([]byte(candidateResponse("described")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), GenerationRequest{
		UserPrompt: "what is on screen",
		Image:      []byte{0x89, 0x50, 0x4e, 0x47},
	})
	require.NoError(t, err)

	require.Len(t, captured.Contents[0].Parts, 2)
	require.NotNil(t, captured.Contents[0].Parts[0].InlineData)
	assert.Equal(t, "image/png", captured.Contents[0].Parts[0].InlineData.MIMEType)
	assert.Equal(t, "what is on screen", captured.Contents[0].Parts[1].Text)
}

func TestGenerate_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(candidateResponse("recovered")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	out, err := client.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 3, attempts)
}

func TestGenerate_PermanentErrorDoesNotRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bad request"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestGenerate_BlockedResponseIsPermanent(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte(`{"candidates": [{"content": {"parts": []}, "finishReason": "SAFETY"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
	assert.Equal(t, 1, attempts)
}
