package diagnostics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arcerrors "github.com/vesaa/arcbot/internal/errors"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arcbot.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadVersion(t *testing.T) {
	v, err := ReadVersion(writeManifest(t, "[package]\nname = \"arcbot\"\nversion = \"2.4.0\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "2.4.0", v)
}

func TestReadVersion_Failures(t *testing.T) {
	tests := map[string]string{
		"missing":   filepath.Join(t.TempDir(), "nope.toml"),
		"malformed": writeManifest(t, "[package\nversion = "),
		"empty":     writeManifest(t, "[package]\nname = \"arcbot\"\n"),
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadVersion(path)
			require.Error(t, err)
			assert.True(t, arcerrors.HasCode(err, arcerrors.ErrCodeFileAccessFailure))
		})
	}
}
