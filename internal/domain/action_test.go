package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionKind(t *testing.T) {
	tests := []struct {
		in   string
		want ActionKind
	}{
		{"generate_quote", ActionKindGenerateQuote},
		{"send_quote_followup", ActionKindQuoteFollowup},
		{"send_quote_secondary_followup", ActionKindQuoteSecondaryFollowup},
		{"chase_payment", ActionKindUnknown},
		{"", ActionKindUnknown},
	}
	for _, tt := range tests {
		got := ParseActionKind(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		if got != ActionKindUnknown {
			assert.Equal(t, tt.in, got.String())
		}
	}
}

func TestActionStatus_Terminal(t *testing.T) {
	assert.False(t, ActionStatusPending.Terminal())
	assert.False(t, ActionStatusApproved.Terminal())
	assert.True(t, ActionStatusRejected.Terminal())
	assert.True(t, ActionStatusCompleted.Terminal())
	assert.True(t, ActionStatusFailed.Terminal())

	assert.True(t, ValidActionStatus("approved"))
	assert.False(t, ValidActionStatus("archived"))
}

func TestAction_DecodePayload(t *testing.T) {
	a := &Action{
		Type:    ActionTypeGenerateQuote,
		Payload: map[string]any{"clientId": "12", "title": "Deck", "amount": 4200.5, "extra": true},
	}
	var p GenerateQuotePayload
	require.NoError(t, a.DecodePayload(&p))
	assert.Equal(t, int64(12), p.ClientID.Int64())
	assert.Equal(t, "Deck", p.Title)
	assert.Equal(t, FlexString("4200.5"), p.Amount)
}

func TestFlexInt64(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{`7`, 7, false},
		{`"7"`, 7, false},
		{`" 42 "`, 42, false},
		{`7.0`, 7, false},
		{`null`, 0, false},
		{`""`, 0, false},
		{`7.5`, 0, true},
		{`"abc"`, 0, true},
	}
	for _, tt := range tests {
		var f FlexInt64
		err := json.Unmarshal([]byte(tt.in), &f)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, f.Int64(), tt.in)
	}
}

func TestFlexString(t *testing.T) {
	var f FlexString
	require.NoError(t, json.Unmarshal([]byte(`"5000.00"`), &f))
	assert.Equal(t, FlexString("5000.00"), f)
	require.NoError(t, json.Unmarshal([]byte(`5000`), &f))
	assert.Equal(t, FlexString("5000"), f)
	assert.Error(t, json.Unmarshal([]byte(`true`), &f))
}

func TestAgent_HasAnySkill(t *testing.T) {
	a := &Agent{Skills: []string{SkillFollowUpEmails}}
	assert.True(t, a.HasAnySkill(SkillQuoteGeneration, SkillFollowUpEmails))
	assert.False(t, a.HasAnySkill(SkillQuoteGeneration))
	assert.False(t, a.HasAnySkill())
}
