package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	inmemdb "github.com/bigredeye/gradebook/internal/database/inmem"
	"github.com/bigredeye/gradebook/internal/models"
)

const someScores = `
- {studentID: S1, studentName: Alice, class: 10A, examName: Midterm, subject: Math, score: 72}
- {studentID: S2, studentName: Bob, class: 10A, examName: Midterm, subject: Math, score: 88}
- {studentID: S3, studentName: Carol, class: 10B, examName: Midterm, subject: Math, score: 95}
- {studentID: S4, studentName: Dan, class: 10C, examName: Midterm, subject: Math, score: 60}
- {studentID: S5, studentName: Eve, class: 10C, examName: Final, subject: Math, score: 30}
- {studentID: S6, studentName: Frank, class: 10A, examName: Midterm, subject: Physics, score: 49.5}
- {studentID: S7, studentName: Grace, class: 10B, examName: Final, subject: Physics, score: 50}
`

var someTime = time.Date(1969, time.July, 20, 20, 17, 0, 0, time.UTC)

func makeEngine(t *testing.T, fixture string) *Engine {
	t.Helper()
	scores := []*models.ScoreRecord{}
	if err := yaml.Unmarshal([]byte(fixture), &scores); err != nil {
		panic(err)
	}
	for i, score := range scores {
		if score.UploadedAt.IsZero() {
			score.UploadedAt = someTime.Add(time.Duration(i) * time.Minute)
		}
	}

	db := inmemdb.Open()
	if _, err := db.AddScoreRecords(context.Background(), scores); err != nil {
		t.Fatal("Failed to add scores:", err)
	}
	return NewEngine(db, zap.NewNop())
}

func TestSubjectAnalysis(t *testing.T) {
	engine := makeEngine(t, someScores)

	report, err := engine.SubjectAnalysis(context.Background(), "10A", "Midterm", "Math")
	if err != nil {
		t.Fatal(err)
	}
	expected := &SubjectReport{Average: 80, Highest: 88, Lowest: 72}
	if !cmp.Equal(report, expected) {
		t.Fatalf("Invalid report: %+v, expected: %+v", report, expected)
	}

	_, err = engine.SubjectAnalysis(context.Background(), "10A", "Midterm", "History")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("Expected ErrNoData, got %v", err)
	}
}

func TestHugeScoresKeepFiniteAverage(t *testing.T) {
	engine := makeEngine(t, `
- {studentID: S1, studentName: Alice, class: 10A, examName: Midterm, subject: Math, score: 1.0e+308}
- {studentID: S2, studentName: Bob, class: 10A, examName: Midterm, subject: Math, score: 1.0e+308}
- {studentID: S3, studentName: Carol, class: 10B, examName: Midterm, subject: Math, score: -1.7e+308}
- {studentID: S4, studentName: Dan, class: 10B, examName: Midterm, subject: Math, score: 1.7e+308}
`)

	report, err := engine.SubjectAnalysis(context.Background(), "10A", "Midterm", "Math")
	if err != nil {
		t.Fatal(err)
	}
	if report.Average != 1e308 {
		t.Fatalf("Invalid average: %g, expected: %g", report.Average, 1e308)
	}
	if _, err := json.Marshal(report); err != nil {
		t.Fatalf("Failed to encode report: %v", err)
	}

	classes, err := engine.ClassAnalysis(context.Background(), "Midterm", "Math")
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 2 || classes[1].ClassName != "10B" || classes[1].Average != 0 {
		t.Fatalf("Invalid class reports: %+v", classes)
	}
	if _, err := json.Marshal(classes); err != nil {
		t.Fatalf("Failed to encode class reports: %v", err)
	}
}

func TestClassAnalysisOrder(t *testing.T) {
	engine := makeEngine(t, `
- {studentID: A1, studentName: A1, class: A, examName: Midterm, subject: Math, score: 70}
- {studentID: A2, studentName: A2, class: A, examName: Midterm, subject: Math, score: 90}
- {studentID: B1, studentName: B1, class: B, examName: Midterm, subject: Math, score: 95}
- {studentID: C1, studentName: C1, class: C, examName: Midterm, subject: Math, score: 60}
- {studentID: D1, studentName: D1, class: D, examName: Final, subject: Math, score: 100}
`)

	reports, err := engine.ClassAnalysis(context.Background(), "Midterm", "Math")
	if err != nil {
		t.Fatal(err)
	}

	expected := []ClassReport{
		{ClassName: "B", Average: 95, Highest: 95, Lowest: 95, NumberOfStudents: 1},
		{ClassName: "A", Average: 80, Highest: 90, Lowest: 70, NumberOfStudents: 2},
		{ClassName: "C", Average: 60, Highest: 60, Lowest: 60, NumberOfStudents: 1},
	}
	if diff := cmp.Diff(expected, reports); diff != "" {
		t.Fatalf("Unexpected class analysis (-want +got):\n%s", diff)
	}
}

func TestClassAnalysisTies(t *testing.T) {
	engine := makeEngine(t, `
- {studentID: S1, studentName: S1, class: 9Z, examName: Midterm, subject: Math, score: 70}
- {studentID: S2, studentName: S2, class: 9B, examName: Midterm, subject: Math, score: 70}
- {studentID: S3, studentName: S3, class: 9M, examName: Midterm, subject: Math, score: 70}
`)

	reports, err := engine.ClassAnalysis(context.Background(), "Midterm", "Math")
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(reports))
	for i := range reports {
		names[i] = reports[i].ClassName
	}
	if diff := cmp.Diff([]string{"9B", "9M", "9Z"}, names); diff != "" {
		t.Fatalf("Unexpected class order (-want +got):\n%s", diff)
	}
}

func TestClassAnalysisEmpty(t *testing.T) {
	engine := makeEngine(t, someScores)

	reports, err := engine.ClassAnalysis(context.Background(), "Midterm", "History")
	if err != nil {
		t.Fatal(err)
	}
	if reports == nil || len(reports) != 0 {
		t.Fatalf("Expected empty non-nil result, got %+v", reports)
	}
}

func TestSchoolAnalysis(t *testing.T) {
	engine := makeEngine(t, someScores)

	report, err := engine.SchoolAnalysis(context.Background(), "Midterm", "Math")
	if err != nil {
		t.Fatal(err)
	}

	if report.Average != 78.75 || report.Highest != 95 || report.Lowest != 60 {
		t.Fatalf("Invalid report: %+v", report)
	}
	if report.TotalPassed != 4 || report.TotalFailed != 0 {
		t.Fatalf("Invalid passed/failed: %d/%d, expected: %d/%d", report.TotalPassed, report.TotalFailed, 4, 0)
	}
	if report.BestPerformer.StudentID != "S3" {
		t.Fatalf("Invalid best performer: %s, expected: %s", report.BestPerformer.StudentID, "S3")
	}

	_, err = engine.SchoolAnalysis(context.Background(), "Retake", "Math")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("Expected ErrNoData, got %v", err)
	}
}

func TestPerformanceStatistics(t *testing.T) {
	engine := makeEngine(t, someScores)

	for _, tc := range []struct {
		subject string
		total   int
		passed  int
		best    string
		worst   string
	}{
		{subject: "Math", total: 5, passed: 4, best: "S3", worst: "S5"},
		{subject: "Physics", total: 2, passed: 1, best: "S7", worst: "S6"},
	} {
		report, err := engine.PerformanceStatistics(context.Background(), tc.subject)
		if err != nil {
			t.Fatal(err)
		}
		if report.TotalStudents != tc.total {
			t.Fatalf("Invalid total for %s: %d, expected: %d", tc.subject, report.TotalStudents, tc.total)
		}
		if report.TotalPassed != tc.passed {
			t.Fatalf("Invalid passed for %s: %d, expected: %d", tc.subject, report.TotalPassed, tc.passed)
		}
		if report.TotalPassed+report.TotalFailed != report.TotalStudents {
			t.Fatalf("Passed and failed do not add up for %s: %+v", tc.subject, report)
		}
		if report.BestPerformer.StudentID != tc.best || report.WorstPerformer.StudentID != tc.worst {
			t.Fatalf("Invalid performers for %s: %s/%s, expected: %s/%s",
				tc.subject, report.BestPerformer.StudentID, report.WorstPerformer.StudentID, tc.best, tc.worst)
		}
	}

	_, err := engine.PerformanceStatistics(context.Background(), "History")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("Expected ErrNoData, got %v", err)
	}
}

func TestPerformerTieBreak(t *testing.T) {
	engine := makeEngine(t, `
- {studentID: S9, studentName: Late, class: 10A, examName: Midterm, subject: Math, score: 90}
- {studentID: S2, studentName: Second, class: 10A, examName: Midterm, subject: Math, score: 90}
- {studentID: S2, studentName: Second again, class: 10A, examName: Midterm, subject: Math, score: 90}
- {studentID: S5, studentName: Low, class: 10B, examName: Midterm, subject: Math, score: 10}
- {studentID: S3, studentName: Lower id, class: 10B, examName: Midterm, subject: Math, score: 10}
`)

	report, err := engine.PerformanceStatistics(context.Background(), "Math")
	if err != nil {
		t.Fatal(err)
	}

	expectedBest := &models.ScoreRecord{
		ID: 2, StudentID: "S2", StudentName: "Second", Class: "10A", ExamName: "Midterm", Subject: "Math", Score: 90,
		UploadedAt: someTime.Add(time.Minute),
	}
	if diff := cmp.Diff(expectedBest, report.BestPerformer); diff != "" {
		t.Fatalf("Unexpected best performer (-want +got):\n%s", diff)
	}
	if report.WorstPerformer.StudentName != "Lower id" {
		t.Fatalf("Invalid worst performer: %s, expected: %s", report.WorstPerformer.StudentName, "Lower id")
	}
}

func TestStoreErrorsAreReported(t *testing.T) {
	db := inmemdb.Open()
	db.Err = errors.New("database is down")
	engine := NewEngine(db, zap.NewNop())

	if _, err := engine.SubjectAnalysis(context.Background(), "10A", "Midterm", "Math"); err == nil || errors.Is(err, ErrNoData) {
		t.Fatalf("Expected store error, got %v", err)
	}
	if _, err := engine.ClassAnalysis(context.Background(), "Midterm", "Math"); err == nil {
		t.Fatalf("Expected store error")
	}
}
