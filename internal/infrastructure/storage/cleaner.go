package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
)

// generatedExtensions are the transient working files the presentation
// pipeline leaves behind, plus their sidecar metadata.
var generatedExtensions = map[string]bool{
	".pptx": true,
	".pdf":  true,
	".json": true,
}

// GeneratedFileCleaner implements port.WorkingFileCleaner over the local
// working-output directory.
type GeneratedFileCleaner struct {
	workDir string
	logger  *zap.Logger
}

// NewGeneratedFileCleaner creates a new working-file cleaner
func NewGeneratedFileCleaner(workDir string, logger *zap.Logger) *GeneratedFileCleaner {
	return &GeneratedFileCleaner{
		workDir: workDir,
		logger:  logger,
	}
}

// CleanupGenerated deletes generated exports whose file name carries the
// opportunity ID. A missing working directory means nothing to clean.
func (c *GeneratedFileCleaner) CleanupGenerated(ctx context.Context, opportunityID string) (int, error) {
	if opportunityID == "" {
		return 0, fmt.Errorf("cannot cleanup: empty opportunity id")
	}

	entries, err := os.ReadDir(c.workDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read working directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.Contains(name, opportunityID) {
			continue
		}
		if !generatedExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		path := filepath.Join(c.workDir, name)
		if err := os.Remove(path); err != nil {
			c.logger.Warn("Failed to remove generated file",
				zap.String("path", path),
				zap.Error(err))
			continue
		}

		c.logger.Debug("Removed generated file", zap.String("path", path))
		removed++
	}

	return removed, nil
}

// Verify interface compliance
var _ port.WorkingFileCleaner = (*GeneratedFileCleaner)(nil)
