package main

import (
	"bytes"
	"encoding/csv"
	"math/rand"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bigredeye/gradebook/internal/ingest"
)

func TestGenerateTable(t *testing.T) {
	for _, rate := range []float64{0, 0.5, 1} {
		body := bytes.Buffer{}
		corrupted, err := generateTable(rand.New(rand.NewSource(1)), &body, tableOptions{Rows: 50, Classes: 3, CorruptRate: rate})
		if err != nil {
			t.Fatalf("Failed to generate table: %v", err)
		}

		rows, err := csv.NewReader(&body).ReadAll()
		if err != nil {
			t.Fatalf("Failed to read generated table: %v", err)
		}
		if diff := cmp.Diff(ingest.Columns, rows[0]); diff != "" {
			t.Fatalf("Invalid header (-want +got):\n%s", diff)
		}
		if len(rows) != 51 {
			t.Fatalf("Invalid number of rows: %d, expected: %d", len(rows), 51)
		}

		broken := 0
		for _, row := range rows[1:] {
			if _, err := strconv.ParseFloat(row[5], 64); err != nil || row[5] == "NaN" || row[2] == "" {
				broken++
			}
		}
		if broken != corrupted {
			t.Fatalf("Invalid number of corrupted rows: %d, expected: %d", broken, corrupted)
		}
		if rate == 0 && corrupted != 0 {
			t.Fatalf("Invalid number of corrupted rows: %d, expected: %d", corrupted, 0)
		}
		if rate == 1 && corrupted != 50 {
			t.Fatalf("Invalid number of corrupted rows: %d, expected: %d", corrupted, 50)
		}
	}
}

func TestGenerateTableNoClasses(t *testing.T) {
	if _, err := generateTable(rand.New(rand.NewSource(1)), &bytes.Buffer{}, tableOptions{Rows: 1}); err == nil {
		t.Fatalf("Expected an error for zero classes")
	}
}
