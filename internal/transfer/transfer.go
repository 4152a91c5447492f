// Package transfer reads and writes snippet collections as JSON or CSV.
//
// Export writes full records. Import only produces model.Draft values:
// ids, owners and derived fields in the file are ignored, and every draft
// still goes through the service's validation.
package transfer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sakif/snippet-shelf/internal/model"
)

// Format is an import/export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv" (any case). Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("transfer: unknown format %q", s)
}

// ContentType is the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Write encodes snippets in format f.
func Write(w io.Writer, f Format, snippets []model.Snippet) error {
	if f == FormatCSV {
		return WriteCSV(w, snippets)
	}
	return WriteJSON(w, snippets)
}

// Read decodes drafts in format f.
func Read(r io.Reader, f Format) ([]model.Draft, error) {
	if f == FormatCSV {
		return ReadCSV(r)
	}
	return ReadJSON(r)
}

// WriteJSON writes snippets as an indented JSON array.
func WriteJSON(w io.Writer, snippets []model.Snippet) error {
	if snippets == nil {
		snippets = []model.Snippet{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snippets); err != nil {
		return fmt.Errorf("transfer: encoding json: %w", err)
	}
	return nil
}

// ReadJSON parses a JSON array of snippet objects. Items missing a title,
// body or kind are dropped here, the same way a hand-edited export with a
// stray object in it should not fail the whole import.
func ReadJSON(r io.Reader) ([]model.Draft, error) {
	var items []model.Draft
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("transfer: decoding json: %w", err)
	}

	drafts := make([]model.Draft, 0, len(items))
	for _, d := range items {
		if strings.TrimSpace(d.Title) == "" || d.Body == "" || d.Kind == "" {
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// csvHeader is the column order for CSV export and import.
var csvHeader = []string{"id", "title", "body", "kind", "language", "tags", "isPinned", "createdAt", "updatedAt"}

// utf8BOM makes spreadsheet apps detect UTF-8.
const utf8BOM = "\uFEFF"

// csvTagSep joins tags in the single tags column.
const csvTagSep = ", "

// WriteCSV writes snippets with a header row, preceded by a UTF-8 BOM.
func WriteCSV(w io.Writer, snippets []model.Snippet) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("transfer: writing csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("transfer: writing csv header: %w", err)
	}
	for _, s := range snippets {
		row := []string{
			s.ID,
			s.Title,
			s.Body,
			string(s.Kind),
			s.Language,
			strings.Join(s.Tags, csvTagSep),
			strconv.FormatBool(s.IsPinned),
			strconv.FormatInt(s.CreatedAt, 10),
			strconv.FormatInt(s.UpdatedAt, 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("transfer: writing csv row %s: %w", s.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("transfer: flushing csv: %w", err)
	}
	return nil
}

// ReadCSV parses a CSV export. The header row is located by name, so the
// columns may be in any order. Rows with fewer than four fields are skipped,
// as are rows without a title or body.
func ReadCSV(r io.Reader) ([]model.Draft, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, []byte(utf8BOM)) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []model.Draft{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transfer: reading csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"title", "body"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("transfer: csv is missing the %q column", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	drafts := []model.Draft{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("transfer: reading csv line %d: %w", line, err)
		}
		if len(row) < 4 {
			continue
		}

		d := model.Draft{
			Kind:     model.Kind(strings.TrimSpace(field(row, "kind"))),
			Title:    field(row, "title"),
			Body:     field(row, "body"),
			Language: strings.TrimSpace(field(row, "language")),
			Tags:     splitTags(field(row, "tags")),
		}
		if strings.TrimSpace(d.Title) == "" || d.Body == "" {
			continue
		}
		if d.Kind == "" {
			d.Kind = model.KindCode
		}
		d.IsPinned, _ = strconv.ParseBool(strings.TrimSpace(field(row, "isPinned")))
		d.CreatedAt, _ = strconv.ParseInt(strings.TrimSpace(field(row, "createdAt")), 10, 64)
		d.UpdatedAt, _ = strconv.ParseInt(strings.TrimSpace(field(row, "updatedAt")), 10, 64)
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
