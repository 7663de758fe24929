package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/itchyny/gojq"

	"github.com/dirbs/dirbs-core/internal/catalog"
	"github.com/dirbs/dirbs-core/internal/importer"
)

// runCatalog implements `dirbs catalog <dir>` (spec.md §3.8 supplemental
// feature): harvests every regular file under dir into data_catalog,
// classifying each by list_type against internal/importer.Registry and
// skipping files already cataloged with an identical md5 (catalog.Seen).
func runCatalog(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dirbs catalog", flag.ExitOnError)
	common := bindCommon(fs)
	filterExpr := fs.String("filter", "", "jq expression over each entry's extra_attributes; only matching entries are logged")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: dirbs catalog [flags] <dir>")
	}
	dir := rest[0]

	var filter *gojq.Code
	if *filterExpr != "" {
		q, err := gojq.Parse(*filterExpr)
		if err != nil {
			return fmt.Errorf("parse --filter: %w", err)
		}
		code, err := gojq.Compile(q)
		if err != nil {
			return fmt.Errorf("compile --filter: %w", err)
		}
		filter = code
	}

	sess, err := bootstrap(ctx, "catalog", nil, common)
	if err != nil {
		return err
	}
	var runErr error
	defer func() { sess.finish(ctx, runErr) }()
	rc := sess.rc

	store := catalog.New(rc.Pools.Metadata)
	now := rc.Now()

	var scanned, recorded, matched int
	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		scanned++

		entry, extra, err := harvestFile(path, now)
		if err != nil {
			rc.Logger.Error(err, "failed to harvest file", "path", path)
			return nil
		}

		seen, err := store.Seen(ctx, entry.Filename, entry.Md5)
		if err != nil {
			return err
		}
		if !seen {
			if err := store.Record(ctx, entry, now); err != nil {
				return err
			}
			recorded++
		}

		if filter != nil {
			ok, err := matchesFilter(filter, extra)
			if err != nil {
				return fmt.Errorf("evaluate --filter against %s: %w", path, err)
			}
			if ok {
				matched++
				rc.Logger.Info("catalog entry matched filter", "path", path, "file_type", entry.FileType)
			}
		}
		return nil
	})
	runErr = walkErr
	if walkErr != nil {
		return walkErr
	}

	rc.Logger.Info("catalog complete", "dir", dir, "scanned", scanned, "recorded", recorded, "matched_filter", matched)
	return nil
}

// harvestFile computes one data_catalog entry plus its decoded
// extra_attributes for a single file (spec.md §3.8: filename, file_type,
// md5, compressed_size_bytes, is_valid_zip, is_valid_format,
// extra_attributes).
func harvestFile(path string, now time.Time) (catalog.Entry, map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return catalog.Entry{}, nil, err
	}
	defer f.Close()

	h := md5.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return catalog.Entry{}, nil, err
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	listType, operatorID, validFormat := classifyStem(stem, now)
	validZip := strings.EqualFold(filepath.Ext(path), ".zip")

	extra := map[string]any{
		"list_type": listType,
	}
	if operatorID != "" {
		extra["operator_id"] = operatorID
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return catalog.Entry{}, nil, err
	}

	fileType := listType
	if fileType == "" {
		fileType = "unknown"
	}

	return catalog.Entry{
		Filename:            base,
		FileType:            fileType,
		Md5:                 hex.EncodeToString(h.Sum(nil)),
		CompressedSizeBytes: size,
		IsValidZip:          validZip,
		IsValidFormat:       validFormat,
		ExtraAttributes:     extraJSON,
	}, extra, nil
}

// classifyStem matches stem against every registered importer's filename
// rule, returning the matching list_type (and, for operator files, the
// operator_id prefix). ok reflects whether the file fully satisfies its
// rule (including the date-range bounds Validate checks); a stem whose
// prefix/shape matches but whose dates don't is still classified, just
// with ok=false, since catalogability is about recognizing the file, not
// accepting it for import.
func classifyStem(stem string, now time.Time) (listType, operatorID string, ok bool) {
	for name, def := range importer.Registry {
		if def.FilenameRule.Validate(stem, now) == nil {
			op, _ := def.FilenameRule.Prefix(stem)
			return name, op, true
		}
	}
	for name, def := range importer.Registry {
		if op, prefixOK := def.FilenameRule.Prefix(stem); prefixOK {
			return name, op, false
		}
		if def.FilenameRule.ExactStem == stem {
			return name, "", false
		}
	}
	return "", "", false
}

// matchesFilter runs filter against extra and reports whether it yielded
// any truthy result.
func matchesFilter(filter *gojq.Code, extra map[string]any) (bool, error) {
	iter := filter.Run(extra)
	for {
		v, hasNext := iter.Next()
		if !hasNext {
			return false, nil
		}
		if err, ok := v.(error); ok {
			return false, err
		}
		if truthy(v) {
			return true, nil
		}
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	default:
		return true
	}
}
