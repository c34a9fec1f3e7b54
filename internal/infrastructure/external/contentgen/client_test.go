package contentgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/logger"
)

func TestGenerateResponseDTO_Parsing(t *testing.T) {
	jsonData := `{
    "tips": [
        "Review the wiring diagram before soldering",
        "Test each joint with the multimeter"
    ],
    "dialogue": {"turns": [{"speaker": "mentor", "text": "Let's check your setup."}]},
    "model": "gen-2",
    "generatedAt": "2025-11-03T10:15:00Z"
}`

	var response GenerateResponseDTO
	err := json.Unmarshal([]byte(jsonData), &response)
	assert.NoError(t, err)

	assert.Len(t, response.Tips, 2)
	assert.Equal(t, "Review the wiring diagram before soldering", response.Tips[0])
	assert.Equal(t, "gen-2", response.Model)
	assert.NotEmpty(t, response.Dialogue)

	blob, err := response.Blob()
	assert.NoError(t, err)
	assert.True(t, json.Valid(blob))
}

func TestAPIErrorDTO_Retryable(t *testing.T) {
	assert.True(t, (&APIErrorDTO{Code: "SERVER_ERROR", Message: "boom"}).Retryable())
	assert.True(t, (&APIErrorDTO{Code: "TEMPORARILY_UNAVAILABLE", Message: "later"}).Retryable())
	assert.False(t, (&APIErrorDTO{Code: "INVALID_REQUEST", Message: "bad answers"}).Retryable())
}

func TestClientGenerate_Success(t *testing.T) {
	var gotRequest GenerateRequestDTO

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/generate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		err := json.NewDecoder(r.Body).Decode(&gotRequest)
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(GenerateResponseDTO{
			Tips:  []string{"Start with the base plate"},
			Model: "gen-2",
		})
	}))
	defer ts.Close()

	config := DefaultClientConfig(ts.URL)
	config.APIKey = "test-key"
	client := NewClient(config, logger.NewNop())

	accountID, err := shared.NewAccountID("learner-1")
	require.NoError(t, err)

	blob, err := client.Generate(context.Background(), accountID, 2, map[string]string{
		"experience": "beginner",
	})
	require.NoError(t, err)

	assert.Equal(t, "learner-1", gotRequest.AccountID)
	assert.Equal(t, 2, gotRequest.UnitIndex)
	assert.Equal(t, "beginner", gotRequest.Answers["experience"])

	var response GenerateResponseDTO
	require.NoError(t, json.Unmarshal(blob, &response))
	assert.Equal(t, []string{"Start with the base plate"}, response.Tips)
}

func TestClientGenerate_PermanentAPIError(t *testing.T) {
	requests := 0

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(APIErrorDTO{Code: "INVALID_REQUEST", Message: "answers missing"})
	}))
	defer ts.Close()

	client := NewClient(DefaultClientConfig(ts.URL), logger.NewNop())

	accountID, err := shared.NewAccountID("learner-1")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), accountID, 0, nil)
	require.Error(t, err)

	var apiErr *APIErrorDTO
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "INVALID_REQUEST", apiErr.Code)

	// Permanent errors must not be retried.
	assert.Equal(t, 1, requests)
}

func TestClientGenerate_Disabled(t *testing.T) {
	config := DefaultClientConfig("http://unused")
	config.Disabled = true
	client := NewClient(config, logger.NewNop())

	accountID, err := shared.NewAccountID("learner-1")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), accountID, 0, nil)
	assert.ErrorIs(t, err, ErrGenerationDisabled)
}

type stubContentCache struct {
	blob json.RawMessage
	sets int
}

func (s *stubContentCache) Get(ctx context.Context, accountID shared.AccountID, unitIndex int) (json.RawMessage, error) {
	return s.blob, nil
}

func (s *stubContentCache) Set(ctx context.Context, accountID shared.AccountID, unitIndex int, blob json.RawMessage) error {
	s.blob = blob
	s.sets++
	return nil
}

func TestCachedGenerator_CacheHit(t *testing.T) {
	// A disabled client errors on any call, so a cache hit must short-circuit.
	config := DefaultClientConfig("http://unused")
	config.Disabled = true
	client := NewClient(config, logger.NewNop())

	cache := &stubContentCache{blob: json.RawMessage(`{"tips":["cached"]}`)}
	generator := NewCachedGenerator(client, cache, logger.NewNop())

	accountID, err := shared.NewAccountID("learner-1")
	require.NoError(t, err)

	blob, err := generator.Generate(context.Background(), accountID, 1, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tips":["cached"]}`, string(blob))
	assert.Equal(t, 0, cache.sets)
}

func TestCachedGenerator_CacheMissFillsCache(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GenerateResponseDTO{Tips: []string{"fresh"}})
	}))
	defer ts.Close()

	client := NewClient(DefaultClientConfig(ts.URL), logger.NewNop())
	cache := &stubContentCache{}
	generator := NewCachedGenerator(client, cache, logger.NewNop())

	accountID, err := shared.NewAccountID("learner-1")
	require.NoError(t, err)

	blob, err := generator.Generate(context.Background(), accountID, 1, nil)
	require.NoError(t, err)
	assert.Contains(t, string(blob), "fresh")
	assert.Equal(t, 1, cache.sets)
}
