// Package fetcher reads tabular claim exports and archived feature bundles
// from local files.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

const utf8BOM = "\ufeff"

// CSVOptions configures a delimited claim export reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	LazyQuotes bool // tolerate stray quotes in unquoted fields
	TrimSpace  bool
}

// StreamCSV reads the header row of r synchronously, then streams the
// remaining records. A leading UTF-8 byte order mark is removed from the
// header. It returns ErrEmptyTable when r has no rows at all.
//
// Both returned channels are closed once the stream ends; the caller must
// drain rows or cancel ctx.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([]string, <-chan []string, <-chan error, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // exports pad or truncate trailing columns

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, nil, ErrEmptyTable
	}
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "csv: read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if opts.TrimSpace {
		trimFields(header)
	}

	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		for line := 2; ; line++ {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(err, "csv: read row %d", line)
				return
			}
			if opts.TrimSpace {
				trimFields(record)
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return header, rowCh, errCh, nil
}

func trimFields(record []string) {
	for i, field := range record {
		record[i] = strings.TrimSpace(field)
	}
}
