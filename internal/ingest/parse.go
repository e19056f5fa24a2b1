package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bigredeye/gradebook/internal/models"
)

const (
	ColumnStudentID   = "studentID"
	ColumnStudentName = "studentName"
	ColumnClass       = "class"
	ColumnExamName    = "examName"
	ColumnSubject     = "subject"
	ColumnScore       = "score"
)

var Columns = []string{
	ColumnStudentID,
	ColumnStudentName,
	ColumnClass,
	ColumnExamName,
	ColumnSubject,
	ColumnScore,
}

var (
	ErrEmptyFile = errors.New("file has no header row")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// skipBOM drops a leading UTF-8 byte order mark, as written by spreadsheet exports.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// headerIndex maps a column of Columns to its position in the file.
type headerIndex map[string]int

// parseHeader matches column names case-insensitively, ignoring surrounding
// spaces. Unknown columns are ignored.
func parseHeader(header []string) (headerIndex, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, found := positions[key]; !found {
			positions[key] = i
		}
	}

	idx := make(headerIndex, len(Columns))
	for _, column := range Columns {
		pos, found := positions[strings.ToLower(column)]
		if !found {
			return nil, &ValidationError{
				Line:    1,
				Field:   column,
				Message: "missing column",
			}
		}
		idx[column] = pos
	}
	return idx, nil
}

// parseRow builds a record from a row whose length already matches the header.
func parseRow(idx headerIndex, row []string, line int) (*models.ScoreRecord, error) {
	cell := func(column string) (string, error) {
		value := strings.TrimSpace(row[idx[column]])
		if value == "" {
			return "", &ValidationError{Line: line, Field: column, Message: "required field is empty"}
		}
		return value, nil
	}

	record := &models.ScoreRecord{}
	var err error
	if record.StudentID, err = cell(ColumnStudentID); err != nil {
		return nil, err
	}
	if record.StudentName, err = cell(ColumnStudentName); err != nil {
		return nil, err
	}
	if record.Class, err = cell(ColumnClass); err != nil {
		return nil, err
	}
	if record.ExamName, err = cell(ColumnExamName); err != nil {
		return nil, err
	}
	if record.Subject, err = cell(ColumnSubject); err != nil {
		return nil, err
	}

	raw, err := cell(ColumnScore)
	if err != nil {
		return nil, err
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, &ValidationError{Line: line, Field: ColumnScore, Value: raw, Message: "not a number"}
	}
	record.Score = score

	return record, nil
}

// rowReader streams records out of a CSV body.
type rowReader struct {
	csv    *csv.Reader
	header headerIndex
}

func newRowReader(r io.Reader) (*rowReader, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read header")
	}

	idx, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	// Every following row must have as many fields as the header.
	reader.FieldsPerRecord = len(header)

	return &rowReader{csv: reader, header: idx}, nil
}

// next returns the next row and its line number, or io.EOF.
// A structural error (bad quoting, wrong field count, read failure) is returned
// as is and ends the stream; a bad value is returned as *ValidationError.
func (r *rowReader) next() (*models.ScoreRecord, int, error) {
	row, err := r.csv.Read()
	if err != nil {
		return nil, 0, err
	}
	line, _ := r.csv.FieldPos(0)
	record, err := parseRow(r.header, row, line)
	return record, line, err
}
