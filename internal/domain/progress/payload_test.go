package progress

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

func TestDecodeFormPayload_BareAnswerMap(t *testing.T) {
	raw := json.RawMessage(`{"q1": "coffee roasting", "q2": ["beginner", "weekend"]}`)

	payload, err := DecodeFormPayload(raw)
	require.NoError(t, err)

	assert.Len(t, payload.Responses, 2)
	assert.JSONEq(t, `"coffee roasting"`, string(payload.Responses["q1"]))
	assert.Nil(t, payload.GeneratedContent)
}

func TestDecodeFormPayload_Envelope(t *testing.T) {
	raw := json.RawMessage(`{
		"responses": {"q1": "coffee roasting"},
		"generatedContent": {"plan": "roast light, sell local"}
	}`)

	payload, err := DecodeFormPayload(raw)
	require.NoError(t, err)

	assert.Len(t, payload.Responses, 1)
	assert.JSONEq(t, `"coffee roasting"`, string(payload.Responses["q1"]))
	assert.JSONEq(t, `{"plan": "roast light, sell local"}`, string(payload.GeneratedContent))
}

func TestDecodeFormPayload_BothShapesYieldSameAnswers(t *testing.T) {
	bare := json.RawMessage(`{"q1": "a", "q2": "b"}`)
	envelope := json.RawMessage(`{"responses": {"q1": "a", "q2": "b"}}`)

	fromBare, err := DecodeFormPayload(bare)
	require.NoError(t, err)
	fromEnvelope, err := DecodeFormPayload(envelope)
	require.NoError(t, err)

	assert.Equal(t, fromBare.Responses, fromEnvelope.Responses)
}

func TestDecodeFormPayload_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":            `{{{`,
		"array":               `[1, 2, 3]`,
		"scalar":              `"hello"`,
		"responses not a map": `{"responses": 42}`,
	}

	for name, raw := range cases {
		_, err := DecodeFormPayload(json.RawMessage(raw))
		assert.Error(t, err, name)
		assert.ErrorIs(t, err, shared.ErrInvalidFormat, name)
	}
}

func TestDecodeFormPayload_Empty(t *testing.T) {
	_, err := DecodeFormPayload(nil)
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestDecodeChecklistPayload_ObjectShape(t *testing.T) {
	raw := json.RawMessage(`{"completedItems": ["item-1", "item-3"]}`)

	payload, err := DecodeChecklistPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1", "item-3"}, payload.CompletedItems)
}

func TestDecodeChecklistPayload_BareArray(t *testing.T) {
	raw := json.RawMessage(`["item-1", "item-2"]`)

	payload, err := DecodeChecklistPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1", "item-2"}, payload.CompletedItems)
}

func TestDecodeChecklistPayload_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `oops`,
		"missing field":  `{"items": ["a"]}`,
		"mixed array":    `["a", 7]`,
		"scalar payload": `5`,
	}

	for name, raw := range cases {
		_, err := DecodeChecklistPayload(json.RawMessage(raw))
		assert.Error(t, err, name)
	}
}
