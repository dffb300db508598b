package providers

import (
	"context"
	"errors"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
)

// ErrReasoningUnavailable marks reasoning failures that should fall back
// to the deterministic path without retry.
var ErrReasoningUnavailable = errors.New("reasoning service unavailable")

// ReasoningProvider generates natural-language rationale for the three
// recommendation slots. It is strictly best-effort enrichment: any error
// or timeout sends the request down the deterministic path, and its
// output is validated against the supplied candidate list before use.
type ReasoningProvider interface {
	GenerateRecommendations(ctx context.Context, req *entities.ReasoningRequest) (*entities.ReasoningResponse, error)
}
