package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vigil/pkg/domain-errors"
)

func TestRiskLevelRankOrdering(t *testing.T) {
	levels := RiskLevels()
	require.Len(t, levels, 4)
	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].Rank(), levels[i-1].Rank())
	}
	assert.Equal(t, -1, RiskLevel("SEVERE").Rank())
}

func TestParseRiskLevel(t *testing.T) {
	level, err := ParseRiskLevel("EMERGENCY")
	require.NoError(t, err)
	assert.Equal(t, RiskEmergency, level)

	_, err = ParseRiskLevel("emergency")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	_, err = ParseRiskLevel("")
	require.Error(t, err)
}

func TestParseSubjectID(t *testing.T) {
	id := NewSubjectID()
	parsed, err := ParseSubjectID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	for _, input := range []string{"", "not-a-uuid", "00000000-0000-0000-0000-000000000000"} {
		_, err := ParseSubjectID(input)
		require.Error(t, err, "input %q", input)
		assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	}
}
