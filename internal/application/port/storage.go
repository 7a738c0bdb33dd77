package port

import "context"

// FolderManager creates sanitized folders under a base location. A folder
// name may be a "/" separated path; each segment is sanitized independently
// so customer names cannot escape the base directory.
type FolderManager interface {
	CreateFolder(ctx context.Context, name string) (string, error)
	SanitizeName(name string) string
}

// WorkingFileCleaner removes transient generated files (presentation exports
// and their sidecar metadata) for an opportunity from the working-output
// location. Missing files are not an error.
type WorkingFileCleaner interface {
	CleanupGenerated(ctx context.Context, opportunityID string) (removed int, err error)
}
