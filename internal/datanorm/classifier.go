package datanorm

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Classifier determines the upload format from the filename and the first
// bytes of the payload.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

var zipMagic = []byte("PK\x03\x04")

var csvExtensions = []string{".csv", ".txt", ".tsv"}
var xlsxExtensions = []string{".xlsx", ".xlsm"}

// Classify returns FormatXLSX for zip payloads or spreadsheet extensions,
// FormatCSV for text payloads with a delimited header, and FormatUnknown
// otherwise.
func (c *Classifier) Classify(filename string, head []byte) Format {
	ext := strings.ToLower(filepath.Ext(filename))

	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	for _, e := range xlsxExtensions {
		if ext == e {
			// extension says spreadsheet but the bytes are not a zip
			if len(head) > 0 {
				return FormatUnknown
			}
			return FormatXLSX
		}
	}

	if !looksLikeText(head) {
		return FormatUnknown
	}
	for _, e := range csvExtensions {
		if ext == e {
			return FormatCSV
		}
	}
	if bytes.ContainsAny(firstLine(head), ",;\t") {
		return FormatCSV
	}
	return FormatUnknown
}

func looksLikeText(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	head = bytes.TrimPrefix(head, utf8BOM)
	return !bytes.ContainsRune(head, 0)
}

func firstLine(head []byte) []byte {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		return head[:i]
	}
	return head
}
