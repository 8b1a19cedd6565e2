package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ai-diagnosis/internal/resilience"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       string
		wantTransient bool
		wantText      string
	}{
		{
			name:     "success",
			status:   http.StatusOK,
			body:     `{"candidates":[{"content":{"parts":[{"text":"분석 결과"}]},"finishReason":"STOP"}]}`,
			wantText: "분석 결과",
		},
		{
			name:    "no_candidates",
			status:  http.StatusOK,
			body:    `{"candidates":[]}`,
			wantErr: "no text",
		},
		{
			name:          "rate_limit",
			status:        http.StatusTooManyRequests,
			body:          `{"error":{"code":429}}`,
			wantErr:       "unexpected status 429",
			wantTransient: true,
		},
		{
			name:          "server_error",
			status:        http.StatusServiceUnavailable,
			body:          `{"error":{"code":503}}`,
			wantErr:       "unexpected status 503",
			wantTransient: true,
		},
		{
			name:    "bad_key",
			status:  http.StatusBadRequest,
			body:    `{"error":{"message":"API key not valid"}}`,
			wantErr: "unexpected status 400",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
				assert.Equal(t, "test-key", r.URL.Query().Get("key"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL), WithModel("gemini-test"))
			text, err := client.Generate(context.Background(), "진단해 주세요")

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestGenerate_RequestBody(t *testing.T) {
	var got GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithGenerationConfig(GenerationConfig{
		Temperature:     0.2,
		TopK:            10,
		TopP:            0.8,
		MaxOutputTokens: 4096,
	}))
	_, err := client.Generate(context.Background(), "prompt text")
	require.NoError(t, err)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "prompt text", got.Contents[0].Parts[0].Text)
	assert.InDelta(t, 0.2, got.GenerationConfig.Temperature, 1e-9)
	assert.Equal(t, 10, got.GenerationConfig.TopK)
	assert.Equal(t, 4096, got.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, 1, got.GenerationConfig.CandidateCount)
	assert.Len(t, got.SafetySettings, 4)
}

func TestGenerate_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Generate(ctx, "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestGenerateResponse_TextNil(t *testing.T) {
	var r *GenerateResponse
	assert.Empty(t, r.Text())
}
