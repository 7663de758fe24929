// Package catalog implements the data_catalog store (spec.md §3.8
// supplemental feature): a record of every file the catalog harvester
// has observed, so that re-running `dirbs catalog` over an unchanged
// directory tree is a no-op. Grounded on
// original_source/tests/catalog.py and original_source/src/dirbs's
// data_catalog row shape (filename, file_type, compressed_size_bytes,
// is_valid_zip, is_valid_format, extra_attributes, md5, first/last seen).
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// Entry mirrors one data_catalog row.
type Entry struct {
	Filename            string          `db:"filename"`
	FileType            string          `db:"file_type"`
	Md5                 string          `db:"md5"`
	CompressedSizeBytes int64           `db:"compressed_size_bytes"`
	IsValidZip          bool            `db:"is_valid_zip"`
	IsValidFormat       bool            `db:"is_valid_format"`
	ExtraAttributes     json.RawMessage `db:"extra_attributes"`
	FirstSeen           time.Time       `db:"first_seen"`
	LastSeen            time.Time       `db:"last_seen"`
}

// Store is the data_catalog store, backed by the autocommit metadata
// connection (same connection class as internal/jobs: catalog state
// must survive a rolled-back import transaction).
type Store struct {
	db *sqlx.DB
}

// New wraps an already-open autocommit sqlx connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Seen reports whether filename has already been cataloged with an
// identical md5, the condition that makes a catalog run a no-op.
func (s *Store) Seen(ctx context.Context, filename, md5 string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT count(*) FROM data_catalog WHERE filename = $1 AND md5 = $2`, filename, md5)
	if err != nil {
		return false, errs.NewTransientDbError("check data catalog", err)
	}
	return count > 0, nil
}

// Record inserts or refreshes a data_catalog row for a harvested file.
// On conflict (same filename, new md5 e.g. a file replaced in place) the
// row is updated and last_seen bumped; first_seen is preserved.
func (s *Store) Record(ctx context.Context, e Entry, now time.Time) error {
	extra := e.ExtraAttributes
	if extra == nil {
		extra = json.RawMessage("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO data_catalog(filename, file_type, md5, compressed_size_bytes, is_valid_zip,
			is_valid_format, extra_attributes, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $8)
		ON CONFLICT (filename) DO UPDATE SET
			file_type = EXCLUDED.file_type,
			md5 = EXCLUDED.md5,
			compressed_size_bytes = EXCLUDED.compressed_size_bytes,
			is_valid_zip = EXCLUDED.is_valid_zip,
			is_valid_format = EXCLUDED.is_valid_format,
			extra_attributes = EXCLUDED.extra_attributes,
			last_seen = EXCLUDED.last_seen`,
		e.Filename, e.FileType, e.Md5, e.CompressedSizeBytes, e.IsValidZip, e.IsValidFormat,
		string(extra), now,
	)
	if err != nil {
		return errs.NewTransientDbError("record data catalog entry", err)
	}
	return nil
}

// List returns every cataloged entry of the given file type, or every
// entry if fileType is empty.
func (s *Store) List(ctx context.Context, fileType string) ([]Entry, error) {
	var entries []Entry
	var err error
	if fileType == "" {
		err = s.db.SelectContext(ctx, &entries, `SELECT * FROM data_catalog ORDER BY filename`)
	} else {
		err = s.db.SelectContext(ctx, &entries, `SELECT * FROM data_catalog WHERE file_type = $1 ORDER BY filename`, fileType)
	}
	if err != nil {
		return nil, errs.NewTransientDbError("list data catalog", err)
	}
	return entries, nil
}
