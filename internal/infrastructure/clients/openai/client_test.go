package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/domain/providers"
	apperrors "github.com/connectingdocs/treatment-engine/pkg/errors"
)

func testClient(serverURL string) *Client {
	return &Client{
		apiKey:     "test-key",
		model:      "gpt-4o-mini",
		baseURL:    serverURL,
		httpClient: http.DefaultClient,
	}
}

func reasoningRequest() *entities.ReasoningRequest {
	return &entities.ReasoningRequest{
		Profile: entities.PatientProfile{PrimaryGoal: "anti-aging"},
		Candidates: []entities.ReasoningCandidate{
			{Name: "Gentle Laser Tone-Up", GoalPrimary: "anti-aging"},
			{Name: "Rejuran Healing Course", GoalPrimary: "texture", Trending: true},
		},
	}
}

func TestClient_GenerateRecommendations(t *testing.T) {
	t.Run("parses an output_text envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"output":[{"content":[{"type":"output_text","text":
				"{\"rank1\":{\"protocol\":\"Gentle Laser Tone-Up\",\"score\":92,\"reason\":\"fits\"},\"rank2\":{\"protocol\":\"Rejuran Healing Course\",\"score\":85,\"reason\":\"trend\"},\"rank3\":{\"protocol\":\"Gentle Laser Tone-Up\",\"score\":80,\"reason\":\"stretch\"}}"}]}]}`))
		}))
		defer server.Close()

		resp, err := testClient(server.URL).GenerateRecommendations(context.Background(), reasoningRequest())
		require.NoError(t, err)
		assert.Equal(t, "Gentle Laser Tone-Up", resp.Rank1.Protocol)
		assert.Equal(t, "Rejuran Healing Course", resp.Rank2.Protocol)
		assert.Equal(t, "trend", resp.Rank2.Reason)
	})

	t.Run("non-2xx status is an external error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := testClient(server.URL).GenerateRecommendations(context.Background(), reasoningRequest())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
		assert.True(t, errors.Is(err, providers.ErrReasoningUnavailable))
	})

	t.Run("unreachable service is an external error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := testClient(server.URL).GenerateRecommendations(context.Background(), reasoningRequest())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	})

	t.Run("empty candidate list is rejected", func(t *testing.T) {
		_, err := testClient("http://localhost:0").GenerateRecommendations(context.Background(), &entities.ReasoningRequest{})
		require.Error(t, err)
	})
}
