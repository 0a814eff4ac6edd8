package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COHORT_STRICT_STATUS", "true")
	t.Setenv("ATTENDANCE_LATE_WEIGHT", "0.5")
	t.Setenv("UPLOADS_DRIVER", "S3")
	t.Setenv("STATS_CACHE_TTL", "bogus")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Cohorts.StrictStatus)
	assert.Equal(t, 0.5, cfg.Attendance.LateWeight)
	assert.Equal(t, "s3", cfg.Uploads.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.Uploads.MaxFileSizeBytes)
	assert.Len(t, cfg.Uploads.AllowedMIMEs, 5)
	assert.Equal(t, 24*time.Hour, cfg.Imports.StatusTTL)
}

func TestLateWeightOutOfRangeFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ATTENDANCE_LATE_WEIGHT", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Attendance.LateWeight)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
