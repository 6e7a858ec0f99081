package council

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttribution_FencedBlock(t *testing.T) {
	text := "Final answer text.\n\n```json\n{\"contributors\": [{\"personality_name\": \"Analyst\", \"contribution\": \"structure\"}]}\n```"
	cleaned, contributors := ParseAttribution(text)
	assert.Equal(t, "Final answer text.", cleaned)
	require.Len(t, contributors, 1)
	assert.Equal(t, "Analyst", contributors[0].PersonalityName)
}

func TestParseAttribution_BareBlock(t *testing.T) {
	text := `Answer body. {"contributors": [{"personality_name": "Skeptic", "contribution": "risk analysis"}]}`
	cleaned, contributors := ParseAttribution(text)
	assert.Equal(t, "Answer body.", cleaned)
	require.Len(t, contributors, 1)
	assert.Equal(t, "Skeptic", contributors[0].PersonalityName)
}

func TestParseAttribution_NoBlock(t *testing.T) {
	cleaned, contributors := ParseAttribution("just a plain answer")
	assert.Equal(t, "just a plain answer", cleaned)
	assert.Nil(t, contributors)
}

func TestHasVetoFlag(t *testing.T) {
	assert.True(t, HasVetoFlag("This proposal has a fatal flaw in its assumptions."))
	assert.True(t, HasVetoFlag("I see a CRITICAL RISK here."))
	assert.False(t, HasVetoFlag("This is a solid, well-reasoned answer."))
}
