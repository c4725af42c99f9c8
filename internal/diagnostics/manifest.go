package diagnostics

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	arcerrors "github.com/vesaa/arcbot/internal/errors"
)

// VersionKey is where the manifest keeps the package version.
const VersionKey = "package.version"

// ReadVersion reads the version string from the TOML project manifest.
// The version is part of the bot's identity, so a missing file, a parse
// error or an empty value is a FileAccessFailure rather than a blank field.
func ReadVersion(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", arcerrors.WrapWithContext(arcerrors.ErrCodeFileAccessFailure,
			"reading project manifest", err, map[string]any{"path": path})
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return "", arcerrors.WrapWithContext(arcerrors.ErrCodeFileAccessFailure,
			"parsing project manifest", err, map[string]any{"path": path})
	}

	version := v.GetString(VersionKey)
	if version == "" {
		return "", arcerrors.NewWithContext(arcerrors.ErrCodeFileAccessFailure,
			fmt.Sprintf("project manifest has no %s", VersionKey), map[string]any{"path": path})
	}
	return version, nil
}
