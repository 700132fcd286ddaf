package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Christina1281995/tema-emotions/internal/models"
)

// Row is one unit of the dataset to be annotated. Rows are immutable once
// loaded; identity is the message ID.
type Row struct {
	MessageID int64
	Text      string
	Source    string
	PhotoURLs []string
}

// Dataset is an ordered, zero-indexed sequence of rows.
type Dataset struct {
	rows []Row
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Row returns the row at index, or false when index is out of range.
func (d *Dataset) Row(index int) (Row, bool) {
	if index < 0 || index >= len(d.rows) {
		return Row{}, false
	}
	return d.rows[index], true
}

// View returns the presented content for the row at index.
func (d *Dataset) View(index int) (*models.RowView, bool) {
	row, ok := d.Row(index)
	if !ok {
		return nil, false
	}
	return &models.RowView{
		RowIndex:  index,
		MessageID: row.MessageID,
		Text:      row.Text,
		Source:    row.Source,
		PhotoURLs: row.PhotoURLs,
	}, true
}

// Parse reads a dataset from CSV. The header must contain message_id, text
// and source columns; photo_url is optional and holds a comma-separated list.
func Parse(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"message_id", "text", "source"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv is missing required column %q", required)
		}
	}
	photoCol, hasPhotos := cols["photo_url"]

	var rows []Row
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", line, err)
		}
		line++

		messageID, err := strconv.ParseInt(strings.TrimSpace(record[cols["message_id"]]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid message_id on row %d: %w", line, err)
		}

		row := Row{
			MessageID: messageID,
			Text:      record[cols["text"]],
			Source:    record[cols["source"]],
		}
		if hasPhotos && photoCol < len(record) {
			row.PhotoURLs = splitPhotoURLs(record[photoCol])
		}
		rows = append(rows, row)
	}

	return &Dataset{rows: rows}, nil
}

func splitPhotoURLs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "nan" {
		return nil
	}
	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

// Loader loads predefined datasets from disk.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a dataset loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the dataset at path. Files are re-read on every login so rows
// appended to a dataset become visible the next time a labeler resumes.
func (l *Loader) Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	ds, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}

	l.logger.Info("Dataset loaded", zap.String("path", path), zap.Int("rows", ds.Len()))
	return ds, nil
}
