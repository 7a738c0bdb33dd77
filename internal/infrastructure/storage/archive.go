package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
)

// LocalArchiver implements port.DocumentArchiver over the folder manager's
// archive root, mirroring the <bucket>/<customer>/ folder structure of the
// shared document drive. Copying an already-archived file overwrites it, so
// retries are safe.
type LocalArchiver struct {
	folders port.FolderManager
	logger  *zap.Logger
}

// NewLocalArchiver creates a new local document archiver
func NewLocalArchiver(folders port.FolderManager, logger *zap.Logger) *LocalArchiver {
	return &LocalArchiver{
		folders: folders,
		logger:  logger,
	}
}

// CopyDocuments copies the named files into the per-customer outcome folder.
// Sources that no longer exist are skipped with a warning; a request only
// fails when a present source cannot be copied.
func (a *LocalArchiver) CopyDocuments(ctx context.Context, req port.ArchiveRequest) error {
	folder, err := a.folders.CreateFolder(ctx, a.folderName(req))
	if err != nil {
		return fmt.Errorf("failed to create archive folder: %w", err)
	}

	var copied, skipped int
	for _, ref := range req.FileRefs {
		if ref == "" {
			continue
		}
		if _, err := os.Stat(ref); os.IsNotExist(err) {
			a.logger.Warn("Archive source missing, skipping",
				zap.String("opportunity_id", req.OpportunityID),
				zap.String("source", ref))
			skipped++
			continue
		}
		if err := copyFile(ref, filepath.Join(folder, filepath.Base(ref))); err != nil {
			return fmt.Errorf("failed to archive %s: %w", ref, err)
		}
		copied++
	}

	if len(req.Notes) > 0 {
		notes := strings.Join(req.Notes, "\n") + "\n"
		notesPath := filepath.Join(folder, "submissions.txt")
		if err := os.WriteFile(notesPath, []byte(notes), 0644); err != nil {
			return fmt.Errorf("failed to write archive notes: %w", err)
		}
	}

	a.logger.Info("Documents archived",
		zap.String("opportunity_id", req.OpportunityID),
		zap.String("bucket", req.OutcomeBucket),
		zap.Int("copied", copied),
		zap.Int("skipped", skipped))

	return nil
}

// folderName builds the relative <bucket>/<customer postcode> folder name.
// The folder manager sanitizes each segment when the folder is created, so
// bucket paths like "lost/quotations" keep their structure.
func (a *LocalArchiver) folderName(req port.ArchiveRequest) string {
	customer := strings.TrimSpace(req.CustomerName + " " + req.Postcode)
	if customer == "" {
		customer = req.OpportunityID
	}
	return req.OutcomeBucket + "/" + customer
}

// copyFile copies src to dst, truncating any existing destination
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// Verify interface compliance
var _ port.DocumentArchiver = (*LocalArchiver)(nil)
