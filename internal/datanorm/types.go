package datanorm

// Format is the detected upload file type.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatUnknown Format = "unknown"
)

// Table is a parsed upload: a header row and string cells. Every row has
// exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Config holds ingestion settings loaded from config.yaml.
type Config struct {
	MaxRows      int   `yaml:"max_rows"`
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}
