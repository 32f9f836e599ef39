package message

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_TargetSets(t *testing.T) {
	for _, k := range AllKinds {
		t.Run(string(k), func(t *testing.T) {
			assert.NotEqual(t, RequiresTarget(k), ForbidsTarget(k), "every kind belongs to exactly one set")
		})
	}
	for _, k := range AllKinds {
		assert.Equal(t, k == KindExecute || k == KindStatus, k.IsAction(), k)
	}
	assert.True(t, RequiresTarget(KindRequest))
	assert.True(t, RequiresTarget(KindResponse))
	assert.True(t, ForbidsTarget(KindWriteBoard))
	assert.False(t, ForbidsTarget(Kind("BOGUS")))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("WRITE_BOARD")
	require.NoError(t, err)
	assert.Equal(t, KindWriteBoard, k)

	_, err = ParseKind("request")
	assert.ErrorIs(t, err, ErrUnknownKind)

	k, err = KindFromConfig(" request ")
	require.NoError(t, err)
	assert.Equal(t, KindRequest, k)
}

func TestPermissions(t *testing.T) {
	_, err := NewPermissions(nil, []Kind{KindRequest})
	assert.ErrorIs(t, err, ErrEmptyPermissions)

	_, err = NewPermissions([]Kind{"NOPE"}, []Kind{KindRequest})
	assert.ErrorIs(t, err, ErrUnknownKind)

	p := MustPermissions([]Kind{KindRequest, KindExecute}, []Kind{KindResponse})
	assert.True(t, p.CanSend(KindExecute))
	assert.False(t, p.CanSend(KindStatus))
	assert.True(t, p.CanReceive(KindResponse))
	assert.Equal(t, []Kind{KindExecute, KindRequest}, p.Send())

	err = p.CheckSend("hub", KindStatus)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	var perr *PermissionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, DirectionSend, perr.Direction)
	assert.Equal(t, []Kind{KindExecute, KindRequest}, perr.Allowed)
	assert.Contains(t, err.Error(), "EXECUTE, REQUEST")

	err = p.CheckReceive("hub", KindRequest)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, "The target role cannot receive this message type", UserMessage(err))
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		name   string
		raw    map[string]any
		opts   ShapeOptions
		reason Reason
		field  string
	}{
		{
			name:   "missing type",
			raw:    map[string]any{"from": "a", "content": "x"},
			reason: ReasonMissingField,
			field:  "type",
		},
		{
			name:   "missing content",
			raw:    map[string]any{"type": "STATUS", "from": "a"},
			reason: ReasonMissingField,
			field:  "content",
		},
		{
			name:   "unknown kind",
			raw:    map[string]any{"type": "SHOUT", "from": "a", "content": "x"},
			reason: ReasonUnknownKind,
			field:  "type",
		},
		{
			name:   "request without target",
			raw:    map[string]any{"type": "REQUEST", "from": "a", "content": "x"},
			reason: ReasonTargetRequired,
			field:  "to",
		},
		{
			name:   "response with non string target",
			raw:    map[string]any{"type": "RESPONSE", "from": "a", "to": 3.0, "content": "x"},
			reason: ReasonWrongFieldType,
			field:  "to",
		},
		{
			name:   "execute with target",
			raw:    map[string]any{"type": "EXECUTE", "from": "a", "to": "b", "content": "x"},
			reason: ReasonTargetForbidden,
			field:  "to",
		},
		{
			name:   "write board with target",
			raw:    map[string]any{"type": "WRITE_BOARD", "from": "a", "to": "b", "content": "x"},
			reason: ReasonTargetForbidden,
			field:  "to",
		},
		{
			name:   "non string from",
			raw:    map[string]any{"type": "TASK", "from": 1.0, "content": "x"},
			reason: ReasonWrongFieldType,
			field:  "from",
		},
		{
			name:   "structured execute with string content",
			raw:    map[string]any{"type": "EXECUTE", "from": "a", "content": "click"},
			opts:   ShapeOptions{StructuredActions: true},
			reason: ReasonWrongFieldType,
			field:  "content",
		},
		{
			name:   "plain execute with list content",
			raw:    map[string]any{"type": "EXECUTE", "from": "a", "content": []any{}},
			reason: ReasonWrongFieldType,
			field:  "content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateShape(tt.raw, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			var serr *ShapeError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.reason, serr.Reason)
			assert.Equal(t, tt.field, serr.Field)
		})
	}
}

func TestValidateShape_Valid(t *testing.T) {
	msg, err := ValidateShape(map[string]any{"type": "REQUEST", "from": "hub", "to": "worker_1", "content": "status?"}, ShapeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Message{Kind: KindRequest, From: "hub", To: "worker_1", Content: "status?"}, msg)
	assert.True(t, msg.HasTarget())

	msg, err = ValidateShape(map[string]any{
		"type":    "EXECUTE",
		"from":    "worker",
		"content": []any{map[string]any{"action_type": "CLICK", "x": 10.0}},
	}, ShapeOptions{StructuredActions: true})
	require.NoError(t, err)
	require.Len(t, msg.Actions, 1)
	assert.Equal(t, "CLICK", msg.Actions[0]["action_type"])
	assert.Equal(t, msg.Actions, msg.Payload())

	plain := Message{Kind: KindStatus, From: "hub", Content: "DONE"}
	assert.Equal(t, []Action{{"command": "DONE"}}, plain.Payload())

	assert.Empty(t, Message{Kind: KindExecute, From: "hub"}.Payload())
	assert.Empty(t, Message{Kind: KindExecute, From: "hub", Actions: []Action{}}.Payload())
}

func TestCheckFrom(t *testing.T) {
	m := Message{Kind: KindStatus, From: "hub"}
	assert.NoError(t, CheckFrom(m, "hub"))

	err := CheckFrom(m, "spoke")
	var serr *ShapeError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, ReasonFromMismatch, serr.Reason)
	assert.Equal(t, "The 'from' field must match your current role", UserMessage(err))
}

func TestBaseRole(t *testing.T) {
	assert.Equal(t, "executor", BaseRole("executor_2"))
	assert.Equal(t, "spoke_w_execute", BaseRole("spoke_w_execute_1"))
	assert.Equal(t, "spoke_w_execute", BaseRole("spoke_w_execute"))
	assert.Equal(t, "hub", BaseRole("hub"))
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason Reason
	}{
		{name: "no block", text: "just words", reason: ReasonNoCodeBlock},
		{name: "wrong language", text: "```python\nprint(1)\n```", reason: ReasonInvalidLanguage},
		{name: "empty", text: "```\n\n```", reason: ReasonEmptyCodeBlock},
		{name: "bad json", text: "```json\n{\"type\": }\n```", reason: ReasonInvalidJSON},
		{name: "array", text: "```\n[1, 2]\n```", reason: ReasonNotObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractObject(tt.text)
			var serr *ShapeError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.reason, serr.Reason)
			assert.NotEmpty(t, UserMessage(err))
		})
	}

	obj, err := ExtractObject("Sure.\n```json\n{\"type\": \"STATUS\", \"from\": \"hub\", \"content\": \"DONE\"}\n```\nthanks")
	require.NoError(t, err)
	assert.Equal(t, "STATUS", obj["type"])

	obj, err = ExtractObject("```{\"type\": \"TASK\"}```")
	require.NoError(t, err)
	assert.Equal(t, "TASK", obj["type"])
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Your response is missing the 'from' field",
		UserMessage(&ShapeError{Reason: ReasonMissingField, Field: "from"}))
	assert.Equal(t, "Your content format is incorrect for this message type",
		UserMessage(&ShapeError{Reason: ReasonWrongFieldType, Field: "content"}))
	assert.Equal(t, "Your action could not be processed", UserMessage(errors.New("boom")))
}
