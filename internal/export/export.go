package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Quote escapes a field for the report CSVs: quotes are doubled, line
// breaks become spaces and the result is always wrapped in quotes.
func Quote(s string) string {
	return `"` + strings.ReplaceAll(newlines.Replace(s), `"`, `""`) + `"`
}

// YesNo renders a flag the way the report columns expect it.
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteJSON encodes data as indented JSON into filename. The document is
// staged in a sibling temp file and renamed into place, so an interrupted
// run never leaves a truncated report behind.
func WriteJSON(data interface{}, filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("error creating JSON file %s: %w", filename, err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error encoding JSON for %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing JSON file %s: %w", filename, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("error writing JSON file %s: %w", filename, err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("error writing JSON file %s: %w", filename, err)
	}
	return nil
}

// CSVWriter writes rows whose fields are already escaped. Fields are joined
// as-is, so callers pass free text through Quote.
type CSVWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func NewCSVWriter(filename string) (*CSVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("error creating CSV file: %w", err)
	}

	return &CSVWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *CSVWriter) WriteHeader(headers []string) error {
	if err := w.writeLine(headers); err != nil {
		return fmt.Errorf("error writing CSV headers: %w", err)
	}
	return nil
}

func (w *CSVWriter) WriteRecord(record []string) error {
	if err := w.writeLine(record); err != nil {
		return fmt.Errorf("error writing CSV record: %w", err)
	}
	return nil
}

func (w *CSVWriter) writeLine(fields []string) error {
	if _, err := w.writer.WriteString(strings.Join(fields, ",")); err != nil {
		return err
	}
	return w.writer.WriteByte('\n')
}

func (w *CSVWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("error flushing CSV file: %w", err)
	}
	return w.file.Close()
}

// FormatFilename builds whatsapp_<category>_<date>.<format>.
func FormatFilename(category, date, format string) string {
	return fmt.Sprintf("whatsapp_%s_%s.%s", category, date, format)
}
