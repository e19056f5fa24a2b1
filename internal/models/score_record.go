package models

import (
	"time"
)

// PassThreshold is the lowest score that counts as passed.
const PassThreshold = 50.0

// ScoreRecord is one student's result on one exam subject.
// (StudentID, Class, ExamName, Subject) is not unique: re-uploads add new rows.
type ScoreRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StudentID   string    `gorm:"index" json:"studentID" yaml:"studentID"`
	StudentName string    `json:"studentName" yaml:"studentName"`
	Class       string    `gorm:"index" json:"class" yaml:"class"`
	ExamName    string    `gorm:"index" json:"examName" yaml:"examName"`
	Subject     string    `gorm:"index" json:"subject" yaml:"subject"`
	Score       float64   `json:"score" yaml:"score"`
	UploadedAt  time.Time `gorm:"index" json:"uploadedAt" yaml:"uploadedAt"`
	FileID      string    `gorm:"index" json:"fileID,omitempty" yaml:"fileID"`
}

func (r *ScoreRecord) Passed() bool {
	return r.Score >= PassThreshold
}

// Filter is an exact-match predicate; empty fields match anything.
type Filter struct {
	StudentID string
	Class     string
	ExamName  string
	Subject   string
}

func (f Filter) Match(r *ScoreRecord) bool {
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if f.Class != "" && r.Class != f.Class {
		return false
	}
	if f.ExamName != "" && r.ExamName != f.ExamName {
		return false
	}
	if f.Subject != "" && r.Subject != f.Subject {
		return false
	}
	return true
}

// RetrievalLess is the canonical order records are returned in.
func RetrievalLess(left, right *ScoreRecord) bool {
	if !left.UploadedAt.Equal(right.UploadedAt) {
		return left.UploadedAt.Before(right.UploadedAt)
	}
	return left.ID < right.ID
}
