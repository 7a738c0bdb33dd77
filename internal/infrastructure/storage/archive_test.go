package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
)

func newArchiver(t *testing.T) (*LocalArchiver, string) {
	t.Helper()
	root := t.TempDir()
	logger := zap.NewNop()
	return NewLocalArchiver(NewLocalFolderManager(root, logger), logger), root
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLocalArchiver_CopyDocuments(t *testing.T) {
	t.Run("copies files into the bucketed customer folder", func(t *testing.T) {
		archiver, root := newArchiver(t)
		srcDir := t.TempDir()
		proposal := writeSource(t, srcDir, "proposal.pdf", "proposal content")

		err := archiver.CopyDocuments(context.Background(), port.ArchiveRequest{
			OpportunityID: "opp-abc123",
			CustomerName:  "John Smith",
			Postcode:      "SW1A 1AA",
			OutcomeBucket: "quotations",
			FileRefs:      []string{proposal},
		})
		require.NoError(t, err)

		dest := filepath.Join(root, "quotations", "John Smith SW1A 1AA", "proposal.pdf")
		content, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "proposal content", string(content))
	})

	t.Run("nested buckets keep their structure", func(t *testing.T) {
		archiver, root := newArchiver(t)
		srcDir := t.TempDir()
		proposal := writeSource(t, srcDir, "proposal.pdf", "x")

		err := archiver.CopyDocuments(context.Background(), port.ArchiveRequest{
			OpportunityID: "opp-abc123",
			CustomerName:  "Priya Patel",
			Postcode:      "M1 2AB",
			OutcomeBucket: "lost/quotations",
			FileRefs:      []string{proposal},
		})
		require.NoError(t, err)

		assert.FileExists(t, filepath.Join(root, "lost", "quotations", "Priya Patel M1 2AB", "proposal.pdf"))
	})

	t.Run("missing sources are skipped, not fatal", func(t *testing.T) {
		archiver, root := newArchiver(t)
		srcDir := t.TempDir()
		present := writeSource(t, srcDir, "contract.pdf", "x")

		err := archiver.CopyDocuments(context.Background(), port.ArchiveRequest{
			OpportunityID: "opp-abc123",
			CustomerName:  "John Smith",
			Postcode:      "SW1A 1AA",
			OutcomeBucket: "won",
			FileRefs:      []string{filepath.Join(srcDir, "gone.pdf"), present},
		})
		require.NoError(t, err)

		assert.FileExists(t, filepath.Join(root, "won", "John Smith SW1A 1AA", "contract.pdf"))
		assert.NoFileExists(t, filepath.Join(root, "won", "John Smith SW1A 1AA", "gone.pdf"))
	})

	t.Run("repeat archival overwrites in place", func(t *testing.T) {
		archiver, root := newArchiver(t)
		srcDir := t.TempDir()
		proposal := writeSource(t, srcDir, "proposal.pdf", "v1")

		req := port.ArchiveRequest{
			OpportunityID: "opp-abc123",
			CustomerName:  "John Smith",
			Postcode:      "SW1A 1AA",
			OutcomeBucket: "quotations",
			FileRefs:      []string{proposal},
		}
		require.NoError(t, archiver.CopyDocuments(context.Background(), req))

		require.NoError(t, os.WriteFile(proposal, []byte("v2"), 0644))
		require.NoError(t, archiver.CopyDocuments(context.Background(), req))

		content, err := os.ReadFile(filepath.Join(root, "quotations", "John Smith SW1A 1AA", "proposal.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "v2", string(content))
	})

	t.Run("notes are written as a sidecar file", func(t *testing.T) {
		archiver, root := newArchiver(t)

		err := archiver.CopyDocuments(context.Background(), port.ArchiveRequest{
			OpportunityID: "opp-abc123",
			CustomerName:  "John Smith",
			Postcode:      "SW1A 1AA",
			OutcomeBucket: "won",
			Notes:         []string{"contract_submission:sub-1", "submission:sub-2"},
		})
		require.NoError(t, err)

		content, err := os.ReadFile(filepath.Join(root, "won", "John Smith SW1A 1AA", "submissions.txt"))
		require.NoError(t, err)
		assert.Equal(t, "contract_submission:sub-1\nsubmission:sub-2\n", string(content))
	})

	t.Run("nameless customers fall back to the opportunity id", func(t *testing.T) {
		archiver, root := newArchiver(t)
		srcDir := t.TempDir()
		proposal := writeSource(t, srcDir, "proposal.pdf", "x")

		err := archiver.CopyDocuments(context.Background(), port.ArchiveRequest{
			OpportunityID: "opp-abc123",
			OutcomeBucket: "quotations",
			FileRefs:      []string{proposal},
		})
		require.NoError(t, err)

		assert.FileExists(t, filepath.Join(root, "quotations", "opp-abc123", "proposal.pdf"))
	})
}
