package aggregate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Format is an output format of the summary.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatMarkdown, FormatHTML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be 'csv', 'markdown' or 'html'", s)
	}
}

// Write renders rows in the given format.
func Write(w io.Writer, format Format, rows []Row) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatMarkdown:
		return WriteMarkdown(w, rows)
	case FormatHTML:
		return WriteHTML(w, rows)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}
	return WriteCSVRecords(w, records)
}

// WriteCSVRecords writes the header followed by records already in Header
// column order, such as rows read back from the ledger.
func WriteCSVRecords(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// WriteMarkdown writes a pipe table with the run directory as first column.
func WriteMarkdown(w io.Writer, rows []Row) error {
	var b strings.Builder
	cells := append([]string{"RUN"}, Header...)
	writeMarkdownLine(&b, cells)

	sep := make([]string, len(cells))
	for i := range sep {
		sep[i] = "---"
	}
	writeMarkdownLine(&b, sep)

	for _, r := range rows {
		writeMarkdownLine(&b, append([]string{r.Dir}, r.Record()...))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdownLine(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(c, "|", `\|`))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

// WriteHTML renders the Markdown table to an HTML fragment.
func WriteHTML(w io.Writer, rows []Row) error {
	var src bytes.Buffer
	if err := WriteMarkdown(&src, rows); err != nil {
		return err
	}
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := md.Convert(src.Bytes(), w); err != nil {
		return fmt.Errorf("rendering html: %w", err)
	}
	return nil
}
