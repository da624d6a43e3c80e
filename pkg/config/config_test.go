package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Assignments.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Assignments.ProposalTTL)
	assert.Equal(t, 8, cfg.Assignments.HistoryWeeks)
	assert.True(t, cfg.Assignments.PreferFamilyPairs)
	assert.False(t, cfg.Assignments.CacheEnabled)
}

func TestLoadAssignmentOverrides(t *testing.T) {
	t.Setenv("ASSIGNMENTS_PROPOSAL_TTL", "5m")
	t.Setenv("ASSIGNMENTS_HISTORY_WEEKS", "0")
	t.Setenv("ASSIGNMENTS_PREFER_FAMILY_PAIRS", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Assignments.ProposalTTL)
	assert.Equal(t, 8, cfg.Assignments.HistoryWeeks)
	assert.False(t, cfg.Assignments.PreferFamilyPairs)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, time.Hour, parseDuration("", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("soon", time.Hour))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Hour))
}
