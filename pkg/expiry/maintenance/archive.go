package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/saturn/pkg/expiry"
	"mercator-hq/saturn/pkg/expiry/engine"
)

// Archive is the on-disk document written for a partition before its
// physical storage is dropped.
type Archive struct {
	Partition  expiry.Partition `json:"partition"`
	ArchivedAt time.Time        `json:"archived_at"`
	Records    []expiry.Payload `json:"records"`
}

// Archiver writes partition contents to JSON files under a fixed
// directory. File names derive from the partition ID, so rerunning an
// interrupted retirement overwrites the earlier file instead of
// accumulating duplicates.
type Archiver struct {
	engine engine.Engine
	path   string
	logger *slog.Logger
}

// NewArchiver creates an archiver that writes under path.
func NewArchiver(eng engine.Engine, path string) *Archiver {
	return &Archiver{
		engine: eng,
		path:   path,
		logger: slog.Default().With("component", "expiry.maintenance.archiver"),
	}
}

// ArchivePartition scans the partition and writes its rows to a JSON
// file. It returns the file path, or an empty path when the partition
// holds no rows and no file is needed.
func (a *Archiver) ArchivePartition(ctx context.Context, part expiry.Partition) (string, error) {
	records, err := a.engine.Scan(ctx, part)
	if err != nil {
		return "", fmt.Errorf("failed to scan partition for archive: %w", err)
	}

	if len(records) == 0 {
		a.logger.Debug("partition empty, skipping archive", "partition_id", part.ID)
		return "", nil
	}

	if err := os.MkdirAll(a.path, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archiveFile := filepath.Join(a.path, fmt.Sprintf("%s.json", part.ID))

	file, err := os.Create(archiveFile)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer file.Close()

	doc := Archive{
		Partition:  part,
		ArchivedAt: time.Now().UTC(),
		Records:    records,
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode archive: %w", err)
	}

	a.logger.Info("archived partition",
		"partition_id", part.ID,
		"file", archiveFile,
		"records", len(records))

	return archiveFile, nil
}
