package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/config"
)

func TestMigrations_Embedded(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups, downs := 0, 0
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups++
		case strings.HasSuffix(n, ".down.sql"):
			downs++
		default:
			t.Errorf("unexpected migration file %s", n)
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down migration")

	up, err := migrationsFS.ReadFile("migrations/000001_create_training_runs.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS training_runs")
}

func TestOpen_RequiresURL(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{})
	assert.Error(t, err)

	_, err = Open(context.Background(), nil)
	assert.Error(t, err)
}
