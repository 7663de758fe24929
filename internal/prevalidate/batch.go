package prevalidate

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/dirbs/dirbs-core/internal/errs"
)

var errBatchLinesNotPositive = errors.New("batch line count must be positive")

// Batch is one fixed-size slice of a prevalidated CSV, header row
// included, matching split_file's per-batch contract.
type Batch struct {
	Num int
	// Data holds the header row plus up to BatchLines data rows.
	Data []byte
}

// SplitFile splits r into fixed-size batches of batchLines data rows
// each, every batch carrying its own copy of the header row. At least
// one batch (possibly header-only) is always produced so that an empty
// import remains representable, matching split_file in
// importer_utils.py.
func SplitFile(r io.Reader, batchLines int) ([]Batch, error) {
	if batchLines <= 0 {
		return nil, errs.NewInternalError("prevalidator", "split file", errBatchLinesNotPositive)
	}

	br := bufio.NewReader(r)
	header, err := readLine(br)
	if err != nil && err != io.EOF {
		return nil, errs.NewPrevalidationError("batch", "split file", err)
	}

	if len(header) == 0 {
		return []Batch{{Num: 0, Data: nil}}, nil
	}

	var batches []Batch
	buf := bytes.Buffer{}
	buf.Write(header)
	lineCount := 0
	batchNum := 0

	for {
		line, err := readLine(br)
		if len(line) == 0 && err == io.EOF {
			break
		}
		buf.Write(line)
		lineCount++
		if lineCount == batchLines {
			batches = append(batches, Batch{Num: batchNum, Data: append([]byte(nil), buf.Bytes()...)})
			buf.Reset()
			buf.Write(header)
			batchNum++
			lineCount = 0
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.NewPrevalidationError("batch", "split file", err)
		}
	}

	if lineCount > 0 || batchNum == 0 {
		batches = append(batches, Batch{Num: batchNum, Data: append([]byte(nil), buf.Bytes()...)})
	}
	return batches, nil
}

// readLine reads up to and including the next newline, or until EOF.
// Unlike bufio.Scanner it preserves the line terminator, matching the
// byte-for-byte reconstruction split_file relies on.
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	return line, err
}
