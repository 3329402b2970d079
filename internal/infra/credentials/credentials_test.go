package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shrish242/moltbook-ai-agent/internal/domain/entity"
)

func writeCredFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolve_FromFile(t *testing.T) {
	t.Setenv(EnvVar, "")
	path := writeCredFile(t, `{"api_key": "  file-key  "}`)

	key, err := Resolve(path)

	require.NoError(t, err)
	assert.Equal(t, "file-key", key, "key must be trimmed")
}

func TestResolve_FileWinsOverEnv(t *testing.T) {
	t.Setenv(EnvVar, "env-key")
	path := writeCredFile(t, `{"api_key": "file-key"}`)

	key, err := Resolve(path)

	require.NoError(t, err)
	assert.Equal(t, "file-key", key)
}

func TestResolve_FallsBackToEnv(t *testing.T) {
	t.Setenv(EnvVar, "env-key")
	path := filepath.Join(t.TempDir(), "missing.json")

	key, err := Resolve(path)

	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}

func TestResolve_EmptyFileKeyFallsThrough(t *testing.T) {
	t.Setenv(EnvVar, "env-key")
	path := writeCredFile(t, `{"api_key": "   "}`)

	key, err := Resolve(path)

	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}

func TestResolve_BothMissing_ErrorNamesBothLocations(t *testing.T) {
	t.Setenv(EnvVar, "")
	path := filepath.Join(t.TempDir(), "missing.json")

	_, err := Resolve(path)

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrCredentialMissing)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), EnvVar)
}

func TestResolve_CorruptFileFallsThrough(t *testing.T) {
	t.Setenv(EnvVar, "env-key")
	path := writeCredFile(t, `{broken`)

	key, err := Resolve(path)

	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}
