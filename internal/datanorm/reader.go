package datanorm

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ignite/adoptimizer/internal/segmentation"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read parses payload according to format. Failures are *segmentation.Error
// with KindInvalidInput.
func Read(format Format, payload []byte) (*Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(bytes.NewReader(payload))
	case FormatXLSX:
		return ReadXLSX(bytes.NewReader(payload))
	default:
		return nil, segmentation.InvalidInput("unsupported file type; upload a CSV or XLSX export")
	}
}

// ReadCSV parses a delimited export. The first row is the header. Semicolon
// and tab delimiters are detected from the header line.
func ReadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(stripBOM(r))
	peek, _ := br.Peek(4096)

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = detectDelimiter(firstLine(peek))

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, segmentation.InvalidInput("file is empty")
		}
		return nil, segmentation.InvalidInput("read header: %v", err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, segmentation.InvalidInput("malformed CSV: %v", err)
		}
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return newTable(header, rows)
}

// ReadXLSX parses the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, segmentation.InvalidInput("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, segmentation.InvalidInput("workbook has no sheets")
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, segmentation.InvalidInput("read sheet %q: %v", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, segmentation.InvalidInput("file is empty")
	}

	var rows [][]string
	for _, row := range all[1:] {
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return newTable(all[0], rows)
}

// newTable trims header names and pads or truncates every row to the
// header width.
func newTable(header []string, rows [][]string) (*Table, error) {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	if isBlankRow(cols) {
		return nil, segmentation.InvalidInput("header row is empty")
	}

	for i, row := range rows {
		switch {
		case len(row) < len(cols):
			padded := make([]string, len(cols))
			copy(padded, row)
			rows[i] = padded
		case len(row) > len(cols):
			rows[i] = row[:len(cols)]
		}
	}
	return &Table{Columns: cols, Rows: rows}, nil
}

func detectDelimiter(line []byte) rune {
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// stripBOM wraps a reader to strip a UTF-8 BOM if present.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	if err != nil || n < 3 {
		return io.MultiReader(bytes.NewReader(buf[:n]), r)
	}
	if bytes.Equal(buf, utf8BOM) {
		return r
	}
	return io.MultiReader(bytes.NewReader(buf), r)
}
