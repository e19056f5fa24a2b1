package ingest

import (
	"fmt"

	"github.com/bigredeye/gradebook/internal/models"
)

// Outcome is the aggregate result of one ingestion.
type Outcome struct {
	FileID   string
	FileName string

	// Rows counts data rows read, valid or not.
	Rows     int
	Inserted int
	Failed   []RowError

	// Err is set when the file could not be read to the end.
	Err error
}

func (o *Outcome) Successful() bool {
	return o.Err == nil && len(o.Failed) == 0
}

func (o *Outcome) Status() models.UploadStatus {
	if o.Successful() {
		return models.UploadStatusSuccessful
	}
	return models.UploadStatusError
}

// Summary is a one-line description of what went wrong, empty on success.
func (o *Outcome) Summary() string {
	switch {
	case o.Err != nil && len(o.Failed) > 0:
		return fmt.Sprintf("%v (%d rows rejected before the failure)", o.Err, len(o.Failed))
	case o.Err != nil:
		return o.Err.Error()
	case len(o.Failed) == 1:
		return fmt.Sprintf("1 of %d rows rejected: %v", o.Rows, o.Failed[0].Err)
	case len(o.Failed) > 1:
		return fmt.Sprintf("%d of %d rows rejected, first: %v", len(o.Failed), o.Rows, o.Failed[0].Error())
	}
	return ""
}
