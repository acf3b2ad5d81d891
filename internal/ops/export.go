package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
)

// ExportSchemaVersion is written in the header line of every export.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path     string `json:"path,omitempty"`     // default: ~/.cradle/exports/<category>-<timestamp>.jsonl
	Category string `json:"category,omitempty"` // optional filter
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes names to a JSONL file: a header line, then one record per line
// in insertion order. The file is written to a temp name and renamed into
// place, so an existing file is only replaced by a complete export.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	category, err := parseOptionalCategory(input.Category)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	path := input.Path
	if path == "" {
		if path, err = defaultExportPath(category, now); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
		}
	}
	if err := ValidatePath(path, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	done := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !done {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	header := name.ExportRecord{
		CradleExport:  true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    now.Unix(),
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := db.StreamForExport(ctx, database, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		n, err := db.ScanNameFromRows(rows)
		if err != nil {
			return nil, errors.NewStoreFailure(err)
		}
		if err := enc.Encode(name.ToExportRecord(n)); err != nil {
			return nil, errors.NewInternal(err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreFailure(err)
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename; Windows cannot rename an open file.
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if isSymlink(path) {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path on Windows")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	done = true

	zerolog.Ctx(ctx).Info().Str("path", path).Int("count", count).Msg("export written")
	return &ExportOutput{Path: path, Count: count, ExportedAt: now.Unix()}, nil
}

// defaultExportPath returns ~/.cradle/exports/<category|all>-<timestamp>.jsonl.
func defaultExportPath(category name.Category, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	prefix := "all"
	if category != "" {
		prefix = string(category)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", prefix, now.Format("2006-01-02T150405"), ExportExt)), nil
}
