package mod_files

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const ModsDir = "mods"

var (
	ErrNoFiles          = errors.New("version has no files")
	ErrDownloadDisabled = errors.New("file download disabled by author")
	ErrUnsafeFileName   = errors.New("unsafe file name")
)

// Config is shared by both platforms. Dir is where resolved files are placed,
// relative to the launcher root.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	Token     string `yaml:"token"`
	UserAgent string `yaml:"userAgent"`
	Dir       string `yaml:"dir"`
}

func destFor(dir, filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("%q: %w", filename, ErrUnsafeFileName)
	}
	if dir == "" {
		dir = ModsDir
	}
	return path.Join(dir, filename), nil
}
