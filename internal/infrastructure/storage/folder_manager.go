package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
)

// unsafeChars matches everything archive folder names do not keep. Letters,
// digits, spaces, hyphens and underscores stay so folders remain readable
// ("John Smith SW1A 1AA").
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

// LocalFolderManager creates sanitized folders under a fixed base directory.
// Names may carry "/" separated segments; each segment is sanitized on its
// own, so nested layouts like "lost/quotations" keep their structure.
type LocalFolderManager struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFolderManager creates a new LocalFolderManager
func NewLocalFolderManager(baseDir string, logger *zap.Logger) *LocalFolderManager {
	return &LocalFolderManager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// CreateFolder creates the named folder under the base directory, including
// parents, and returns its full path. Creating an existing folder succeeds.
func (m *LocalFolderManager) CreateFolder(ctx context.Context, name string) (string, error) {
	folderPath, err := m.resolve(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(folderPath, 0755); err != nil {
		m.logger.Error("Failed to create folder",
			zap.String("name", name),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	m.logger.Debug("Created folder",
		zap.String("name", name),
		zap.String("folder_path", folderPath))

	return folderPath, nil
}

// resolve maps a folder name onto the base directory. Segments that sanitize
// down to nothing are dropped; a name with no usable segment is an error.
func (m *LocalFolderManager) resolve(name string) (string, error) {
	parts := []string{m.baseDir}
	for _, seg := range strings.Split(name, "/") {
		if safe := m.SanitizeName(seg); safe != "" {
			parts = append(parts, safe)
		}
	}
	if len(parts) == 1 {
		return "", fmt.Errorf("cannot create folder: no usable name in %q", name)
	}
	return filepath.Join(parts...), nil
}

// SanitizeName returns a filesystem-safe version of one path segment.
// Separators and parent directory references are stripped to prevent
// directory traversal.
func (m *LocalFolderManager) SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return strings.TrimSpace(unsafeChars.ReplaceAllString(name, ""))
}

// Verify interface compliance
var _ port.FolderManager = (*LocalFolderManager)(nil)
