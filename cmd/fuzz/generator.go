package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/bigredeye/gradebook/internal/ingest"
)

var (
	subjects  = []string{"Math", "Physics", "Chemistry", "Biology", "History", "Literature"}
	exams     = []string{"Midterm", "Final", "Quiz 1", "Quiz 2"}
	firstName = []string{"Alice", "Bob", "Carol", "Dan", "Eve", "Frank", "Grace", "Heidi", "Ivan", "Judy"}
	lastName  = []string{"Smith", "Jones", "Brown", "Taylor", "Wilson", "Davies", "Evans", "Thomas"}
)

type tableOptions struct {
	Rows    int
	Classes int
	// CorruptRate is the share of rows with an invalid value.
	CorruptRate float64
}

// generateTable writes a score table and returns the number of corrupted rows.
func generateTable(rng *rand.Rand, w io.Writer, opts tableOptions) (int, error) {
	if opts.Classes < 1 {
		return 0, fmt.Errorf("need at least one class, got %d", opts.Classes)
	}

	out := csv.NewWriter(w)
	if err := out.Write(ingest.Columns); err != nil {
		return 0, err
	}

	exam := exams[rng.Intn(len(exams))]
	corrupted := 0
	for i := 0; i < opts.Rows; i++ {
		student := rng.Intn(opts.Classes * 30)
		class := student / 30
		row := []string{
			fmt.Sprintf("S%05d", student),
			firstName[student%len(firstName)] + " " + lastName[(student/len(firstName))%len(lastName)],
			fmt.Sprintf("%d%c", 9+class%3, 'A'+rune(class%26)),
			exam,
			subjects[rng.Intn(len(subjects))],
			strconv.FormatFloat(float64(rng.Intn(1001))/10, 'f', -1, 64),
		}
		if rng.Float64() < opts.CorruptRate {
			corrupted++
			switch rng.Intn(3) {
			case 0:
				row[5] = "absent"
			case 1:
				row[2] = ""
			default:
				row[5] = "NaN"
			}
		}
		if err := out.Write(row); err != nil {
			return corrupted, err
		}
	}

	out.Flush()
	return corrupted, out.Error()
}
