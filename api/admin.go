package api

import (
	"time"

	"github.com/bigredeye/gradebook/internal/ingest"
)

// Staff is a user as shown to other users: no credentials.
type Staff struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Uploader struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UploadLogEntry struct {
	FileID       string    `json:"fileID" yaml:"fileID"`
	FileName     string    `json:"fileName" yaml:"fileName"`
	UploadedBy   *Uploader `json:"uploadedBy" yaml:"uploadedBy"`
	Status       string    `json:"status" yaml:"status"`
	RowsInserted int       `json:"rowsInserted" yaml:"rowsInserted"`
	RowsFailed   int       `json:"rowsFailed" yaml:"rowsFailed"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
}

type StatsResponse = ingest.Stats
