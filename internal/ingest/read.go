package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

// Result is the outcome of reading one export.
type Result struct {
	Clinics []*model.Clinic `json:"clinics"`
	Skipped []RowError      `json:"skipped,omitempty"`
}

// rowSource yields raw rows; the first row is the header. It returns
// io.EOF when exhausted.
type rowSource func() ([]string, error)

func readRows(ctx context.Context, next rowSource) (*Result, error) {
	head, err := next()
	if err == io.EOF {
		return nil, eris.New("ingest: empty input")
	}
	if err != nil {
		return nil, err
	}
	h, err := parseHeader(head)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ingest: read cancelled")
		}
		cells, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if blankRow(cells) {
			continue
		}
		c, rowErr := parseClinic(h, cells, line)
		if rowErr != nil {
			res.Skipped = append(res.Skipped, *rowErr)
			zap.L().Warn("ingest: skipping row", zap.String("error", rowErr.Error()))
			continue
		}
		res.Clinics = append(res.Clinics, c)
	}
	return res, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadCSV reads a CSV export whose first row is a header.
func ReadCSV(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return readRows(ctx, func() ([]string, error) {
		rec, err := reader.Read()
		if err != nil && err != io.EOF {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}
		return rec, err
	})
}

// ReadXLSX reads the named sheet of an XLSX export, or the first sheet
// when sheet is empty.
func ReadXLSX(ctx context.Context, path, sheet string) (*Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	var s *xlsx.Sheet
	switch {
	case sheet != "":
		var ok bool
		if s, ok = f.Sheet[sheet]; !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", sheet)
		}
	case len(f.Sheets) == 0:
		return nil, eris.New("ingest: workbook has no sheets")
	default:
		s = f.Sheets[0]
	}

	i := 0
	return readRows(ctx, func() ([]string, error) {
		if i >= len(s.Rows) {
			return nil, io.EOF
		}
		row := s.Rows[i]
		i++
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		return cells, nil
	})
}

// ReadFile reads a .csv or .xlsx export.
func ReadFile(ctx context.Context, path string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return nil, eris.Wrap(err, "ingest: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f)
	case ".xlsx":
		return ReadXLSX(ctx, path, "")
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}
