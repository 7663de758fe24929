package main

import (
	"archive/zip"
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dirbs/dirbs-core/internal/importer"
)

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dirbs import", flag.ExitOnError)
	common := bindCommon(fs)
	deltaMode := fs.Bool("delta", false, "the upload carries a change_type column (add|remove|update)")
	batchLines := fs.Int("batch-lines", 0, "override the staging batch size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("usage: dirbs import [flags] <list_type> <file>")
	}
	listType, path := rest[0], rest[1]

	def, err := importer.Lookup(listType)
	if err != nil {
		return err
	}

	in, err := buildInput(path, *deltaMode, *batchLines)
	if err != nil {
		return err
	}

	sub := listType
	sess, err := bootstrap(ctx, "import", &sub, common)
	if err != nil {
		return err
	}
	var runErr error
	defer func() { sess.finish(ctx, runErr) }()

	report, err := importer.Run(ctx, sess.rc, def, in)
	runErr = err
	if err != nil {
		return err
	}

	sess.rc.Logger.Info("import complete",
		"list_type", listType, "rows_read", report.RowsRead,
		"added", report.Delta.Added, "removed", report.Delta.Removed, "updated", report.Delta.Updated)
	return nil
}

// buildInput reads path off disk and resolves it into an importer.Input:
// a .zip extension is unwrapped via archive/zip, anything else is
// treated as a raw CSV (spec.md §6 file-format contract).
func buildInput(path string, deltaMode bool, batchLines int) (importer.Input, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(path)
	if err != nil {
		return importer.Input{}, fmt.Errorf("read %s: %w", path, err)
	}

	in := importer.Input{Filename: stem, DeltaMode: deltaMode, BatchLines: batchLines}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return importer.Input{}, fmt.Errorf("open zip %s: %w", path, err)
		}
		in.Zip = zr
	} else {
		in.CSV = bytes.NewReader(data)
	}
	return in, nil
}
