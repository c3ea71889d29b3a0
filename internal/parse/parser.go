package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Segment is one page-tagged unit of extracted text, in document order.
type Segment struct {
	Text string
	Page *int
}

// csvRowsPerSegment groups CSV rows so a large spreadsheet does not become
// thousands of one-line segments.
const csvRowsPerSegment = 50

// Parser extracts ordered text segments from a downloaded file.
type Parser struct {
	// Language is a hint recorded in debug dumps; the local extraction
	// engines are language-agnostic.
	Language string
}

// NewParser creates a parser with the Portuguese language hint.
func NewParser() *Parser {
	return &Parser{Language: "por"}
}

// Parse extracts segments from the file at path. The file type is inferred
// from the file name extension, falling back to a content sniff. An empty
// segment list is an error.
func (p *Parser) Parse(path, fileName string) ([]Segment, error) {
	kind := inferKind(path, fileName)
	var (
		segments []Segment
		err      error
	)
	switch kind {
	case "csv":
		segments, err = parseCSV(path)
	default:
		segments, err = parsePDF(path)
	}
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errors.New("no text extracted")
	}
	return segments, nil
}

func inferKind(path, fileName string) string {
	name := fileName
	if strings.TrimSpace(name) == "" {
		name = path
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "csv"
	case ".pdf":
		return "pdf"
	}

	f, err := os.Open(path)
	if err != nil {
		return "pdf"
	}
	defer f.Close()
	var magic [5]byte
	if _, err := io.ReadFull(f, magic[:]); err == nil && string(magic[:]) == "%PDF-" {
		return "pdf"
	}
	return "csv"
}

// parsePDF returns one segment per page with non-blank text, pages 1-based.
func parsePDF(path string) ([]Segment, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var segments []Segment
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pageNum := i
		segments = append(segments, Segment{Text: text, Page: &pageNum})
	}
	return segments, nil
}

// parseCSV returns one segment per row group, page numbers absent.
func parseCSV(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var segments []Segment
	var rows []string
	flush := func() {
		if len(rows) == 0 {
			return
		}
		segments = append(segments, Segment{Text: strings.Join(rows, "\n")})
		rows = nil
	}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line := strings.TrimSpace(strings.Join(record, "; "))
		if line == "" {
			continue
		}
		rows = append(rows, line)
		if len(rows) >= csvRowsPerSegment {
			flush()
		}
	}
	flush()
	return segments, nil
}
