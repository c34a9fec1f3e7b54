package contentgen

import (
	"encoding/json"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE SHAPES
// ══════════════════════════════════════════════════════════════════════════════

// GenerateRequestDTO is the payload sent to the generation collaborator.
// Answers are the learner's form answers for the unit; the collaborator
// turns them into personalized tips and a worked dialogue.
type GenerateRequestDTO struct {
	AccountID string            `json:"accountId"`
	UnitIndex int               `json:"unitIndex"`
	Answers   map[string]string `json:"answers"`
	Locale    string            `json:"locale,omitempty"`
}

// GenerateResponseDTO is the collaborator's reply.
type GenerateResponseDTO struct {
	Tips     []string        `json:"tips"`
	Dialogue json.RawMessage `json:"dialogue,omitempty"`

	// Model and GeneratedAt are informational only.
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generatedAt,omitempty"`
}

// Blob returns the response as the opaque JSON the engine stores and caches.
func (r *GenerateResponseDTO) Blob() (json.RawMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal generated content: %w", err)
	}
	return data, nil
}

// APIErrorDTO is the collaborator's error envelope.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("contentgen api error %s: %s", e.Code, e.Message)
}

// Retryable reports whether the error is worth retrying.
func (e *APIErrorDTO) Retryable() bool {
	return e.Code == "SERVER_ERROR" || e.Code == "TEMPORARILY_UNAVAILABLE"
}
