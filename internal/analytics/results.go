package analytics

import (
	"github.com/bigredeye/gradebook/internal/models"
)

// SubjectReport summarizes scores of one class on one exam subject.
type SubjectReport struct {
	Average float64 `json:"average" yaml:"average"`
	Highest float64 `json:"highest" yaml:"highest"`
	Lowest  float64 `json:"lowest" yaml:"lowest"`
}

type ClassReport struct {
	ClassName        string  `json:"className" yaml:"className"`
	Average          float64 `json:"average" yaml:"average"`
	Highest          float64 `json:"highest" yaml:"highest"`
	Lowest           float64 `json:"lowest" yaml:"lowest"`
	NumberOfStudents int     `json:"numberOfStudents" yaml:"numberOfStudents"`
}

type SchoolReport struct {
	Average       float64             `json:"average" yaml:"average"`
	Highest       float64             `json:"highest" yaml:"highest"`
	Lowest        float64             `json:"lowest" yaml:"lowest"`
	TotalPassed   int                 `json:"totalPassed" yaml:"totalPassed"`
	TotalFailed   int                 `json:"totalFailed" yaml:"totalFailed"`
	BestPerformer *models.ScoreRecord `json:"bestPerformer" yaml:"bestPerformer"`
}

type PerformanceReport struct {
	TotalStudents  int                 `json:"totalStudents" yaml:"totalStudents"`
	TotalPassed    int                 `json:"totalPassed" yaml:"totalPassed"`
	TotalFailed    int                 `json:"totalFailed" yaml:"totalFailed"`
	BestPerformer  *models.ScoreRecord `json:"bestPerformer" yaml:"bestPerformer"`
	WorstPerformer *models.ScoreRecord `json:"worstPerformer" yaml:"worstPerformer"`
}
