// Package uploads stages incoming photos on disk, one folder per
// workspace connection.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/notelift/notelift-backend/pkg/config"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
)

// Store writes uploaded files under a per-bot subdirectory. The
// subdirectory is cleared before each save so one upload never mixes
// with the previous one; different bots stay fully isolated.
type Store struct {
	root    string
	allowed map[string]bool
}

// NewStore builds the staging store rooted at cfg.Dir.
func NewStore(cfg config.UploadConfig) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("upload dir required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	allowed := make(map[string]bool)
	for _, ext := range cfg.AllowedExtensions() {
		allowed["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Store{root: cfg.Dir, allowed: allowed}, nil
}

// AllowedFile reports whether the filename carries an accepted image
// extension.
func (s *Store) AllowedFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || !s.allowed[ext] {
		return false
	}
	// Names like ".png" have no base before the extension.
	return strings.ToLower(filepath.Base(filename)) != ext
}

// Save clears the bot's staging folder and writes the file into it,
// returning the folder path.
func (s *Store) Save(botID, filename string, src io.Reader) (string, error) {
	if strings.TrimSpace(botID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "bot id is required")
	}
	if !s.AllowedFile(filename) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file type not allowed")
	}

	dir := filepath.Join(s.root, sanitizeComponent(botID))
	if err := os.RemoveAll(dir); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear staging folder")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create staging folder")
	}

	target := filepath.Join(dir, SanitizeFilename(filename))
	out, err := os.Create(target)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create staged file")
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, src); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write staged file")
	}
	return dir, nil
}

// SanitizeFilename strips path components and anything outside a small
// safe character set.
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	cleaned := sanitizeComponent(base)
	if cleaned == "" || strings.Trim(cleaned, "._-") == "" {
		return "upload"
	}
	return cleaned
}

func sanitizeComponent(value string) string {
	var sb strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
