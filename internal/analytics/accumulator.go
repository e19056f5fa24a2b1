package analytics

import (
	"github.com/bigredeye/gradebook/internal/models"
)

// performerLess orders candidates for best and worst performer once their
// scores are equal: lower student id first, then earlier upload, then record id.
func performerLess(left, right *models.ScoreRecord) bool {
	if left.StudentID != right.StudentID {
		return left.StudentID < right.StudentID
	}
	return models.RetrievalLess(left, right)
}

// accumulator is a running reduction over a stream of records.
// It holds at most two records regardless of the stream length.
type accumulator struct {
	count  int
	passed int
	// mean is kept incrementally so large scores never overflow a running sum.
	mean float64

	best  models.ScoreRecord
	worst models.ScoreRecord
}

func (a *accumulator) add(record *models.ScoreRecord) error {
	if a.count == 0 {
		a.best = *record
		a.worst = *record
	} else {
		if record.Score > a.best.Score || (record.Score == a.best.Score && performerLess(record, &a.best)) {
			a.best = *record
		}
		if record.Score < a.worst.Score || (record.Score == a.worst.Score && performerLess(record, &a.worst)) {
			a.worst = *record
		}
	}

	a.count++
	n := float64(a.count)
	a.mean += record.Score/n - a.mean/n
	if record.Passed() {
		a.passed++
	}
	return nil
}

func (a *accumulator) empty() bool {
	return a.count == 0
}

func (a *accumulator) average() float64 {
	return a.mean
}

func (a *accumulator) failed() int {
	return a.count - a.passed
}

func (a *accumulator) bestPerformer() *models.ScoreRecord {
	best := a.best
	return &best
}

func (a *accumulator) worstPerformer() *models.ScoreRecord {
	worst := a.worst
	return &worst
}
