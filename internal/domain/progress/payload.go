package progress

import (
	"encoding/json"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAYLOAD DECODING
// Saved payloads arrive in two historical shapes and both must keep working.
// Decoding is strict only about structure the migration actually needs.
// ══════════════════════════════════════════════════════════════════════════════

// FormPayload is the decoded state of a saved form.
type FormPayload struct {
	// Responses maps question keys to the learner's answers.
	Responses map[string]json.RawMessage

	// GeneratedContent is the personalized content produced from the
	// responses, if the client stored any.
	GeneratedContent json.RawMessage
}

// formEnvelope is the newer client shape: answers nested under "responses"
// with the generated output alongside.
type formEnvelope struct {
	Responses        map[string]json.RawMessage `json:"responses"`
	GeneratedContent json.RawMessage            `json:"generatedContent"`
}

// DecodeFormPayload decodes a form payload in either supported shape:
//
//	{"q1": "...", "q2": "..."}                                 (legacy: bare answer map)
//	{"responses": {"q1": "..."}, "generatedContent": {...}}    (envelope)
//
// An object with a "responses" key is treated as an envelope; any other
// object is taken as the answer map itself.
func DecodeFormPayload(raw json.RawMessage) (FormPayload, error) {
	if len(raw) == 0 {
		return FormPayload{}, shared.WrapError("progress", "DecodeFormPayload", shared.ErrInvalidFormat, "empty payload", nil)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return FormPayload{}, shared.WrapError("progress", "DecodeFormPayload", shared.ErrInvalidFormat, "payload is not a JSON object", err)
	}

	if _, ok := probe["responses"]; ok {
		var env formEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return FormPayload{}, shared.WrapError("progress", "DecodeFormPayload", shared.ErrInvalidFormat, "malformed form envelope", err)
		}
		if env.Responses == nil {
			return FormPayload{}, shared.WrapError("progress", "DecodeFormPayload", shared.ErrInvalidFormat, "envelope responses must be an object", nil)
		}
		return FormPayload{
			Responses:        env.Responses,
			GeneratedContent: env.GeneratedContent,
		}, nil
	}

	return FormPayload{Responses: probe}, nil
}

// ChecklistPayload is the decoded state of a saved checklist.
type ChecklistPayload struct {
	// CompletedItems holds the IDs of the checked-off items.
	CompletedItems []string
}

// checklistEnvelope is the object shape clients store today.
type checklistEnvelope struct {
	CompletedItems []string `json:"completedItems"`
}

// DecodeChecklistPayload decodes a checklist payload. Accepts the object
// shape {"completedItems": [...]} and the older bare array of item IDs.
func DecodeChecklistPayload(raw json.RawMessage) (ChecklistPayload, error) {
	if len(raw) == 0 {
		return ChecklistPayload{}, shared.WrapError("progress", "DecodeChecklistPayload", shared.ErrInvalidFormat, "empty payload", nil)
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return ChecklistPayload{CompletedItems: items}, nil
	}

	var env checklistEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ChecklistPayload{}, shared.WrapError("progress", "DecodeChecklistPayload", shared.ErrInvalidFormat, "payload is neither an item array nor a checklist object", err)
	}
	if env.CompletedItems == nil {
		return ChecklistPayload{}, shared.WrapError("progress", "DecodeChecklistPayload", shared.ErrInvalidFormat, "completedItems is missing", nil)
	}
	return ChecklistPayload{CompletedItems: env.CompletedItems}, nil
}
