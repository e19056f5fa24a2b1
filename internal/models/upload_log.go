package models

import (
	"time"
)

const (
	UploadStatusSuccessful = "successful"
	UploadStatusError      = "error"
)

type UploadStatus = string

// UploadLog is written once per ingestion attempt and never changed afterwards.
type UploadLog struct {
	ID           uint         `gorm:"primaryKey" json:"-"`
	FileID       string       `gorm:"uniqueIndex;not null" json:"fileID"`
	UploadedByID uint         `gorm:"index;not null" json:"-"`
	UploadedBy   *User        `gorm:"foreignKey:UploadedByID" json:"uploadedBy,omitempty"`
	FileName     string       `gorm:"not null" json:"fileName"`
	Status       UploadStatus `gorm:"not null" json:"status"`
	RowsInserted int          `json:"rowsInserted"`
	RowsFailed   int          `json:"rowsFailed"`
	Error        string       `json:"error,omitempty"`
	Timestamp    time.Time    `gorm:"index" json:"timestamp"`
}
