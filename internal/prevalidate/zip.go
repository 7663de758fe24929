// Package prevalidate implements the pre-validator (spec.md §4.3,
// component C3): zip unwrap, filename-convention check, schema
// validation (delegated to internal/csvschema), and batch splitting.
// Ported from original_source/src/dirbs/importer/importer_utils.py.
package prevalidate

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// ExtractCSV opens the single CSV member of a zip archive whose stem
// matches the zip's own stem, matching extract_csv_from_zip.
func ExtractCSV(zr *zip.Reader, zipBaseName string) (io.ReadCloser, error) {
	if len(zr.File) != 1 {
		return nil, errs.NewPrevalidationError("zip", "extract csv from zip",
			fmt.Errorf("archive contains %d files, expected exactly 1", len(zr.File)))
	}

	f := zr.File[0]
	contentsName := path.Base(f.Name)
	contentsStem := stem(contentsName)
	zipStem := stem(zipBaseName)

	if contentsStem != zipStem {
		return nil, errs.NewPrevalidationError("zip", "extract csv from zip",
			fmt.Errorf("filename in archive %q does not match zip filename stem %q", contentsName, zipBaseName))
	}

	rc, err := f.Open()
	if err != nil {
		return nil, errs.NewPrevalidationError("zip", "extract csv from zip", err)
	}
	return rc, nil
}

func stem(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext)
}
