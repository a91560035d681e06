package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrEmptyTable is returned by OpenTable for a file without a header row.
var ErrEmptyTable = eris.New("fetcher: table has no header row")

// Table is a header plus a stream of data rows read from a CSV, TSV or XLSX
// file. Close must be called once the caller stops reading.
type Table struct {
	Header []string
	Rows   <-chan []string
	Errs   <-chan error

	cancel context.CancelFunc
	file   *os.File
}

// OpenTable opens path and starts streaming it, dispatching on the file
// extension. The header row is read before OpenTable returns.
func OpenTable(ctx context.Context, path string) (*Table, error) {
	ctx, cancel := context.WithCancel(ctx)
	t := &Table{cancel: cancel}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			cancel()
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		t.file = f
		opts := CSVOptions{TrimSpace: true, LazyQuotes: true}
		if ext == ".tsv" {
			opts.Delimiter = '\t'
		}
		t.Header, t.Rows, t.Errs, err = StreamCSV(ctx, f, opts)
		if err != nil {
			t.Close() //nolint:errcheck
			return nil, err
		}
	case ".xlsx":
		headerCh := make(chan []string, 1)
		t.Rows, t.Errs = StreamXLSX(ctx, path, XLSXOptions{SkipRows: 1, HeaderCh: headerCh})
		header, err := awaitHeader(headerCh, t.Errs)
		if err != nil {
			t.Close() //nolint:errcheck
			return nil, err
		}
		t.Header = header
	default:
		cancel()
		return nil, eris.Errorf("fetcher: unsupported table format %q", ext)
	}

	return t, nil
}

// awaitHeader blocks until the stream has produced its header row or ended.
func awaitHeader(headerCh <-chan []string, errCh <-chan error) ([]string, error) {
	select {
	case h := <-headerCh:
		return h, nil
	case err, ok := <-errCh:
		if ok && err != nil {
			return nil, err
		}
		// The stream may have ended right after sending the header.
		select {
		case h := <-headerCh:
			return h, nil
		default:
			return nil, ErrEmptyTable
		}
	}
}

// Close stops the stream and releases the underlying file.
func (t *Table) Close() error {
	t.cancel()
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}
