// Package records defines the persistence contracts of the service and the
// query side built on top of them.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/bigredeye/gradebook/internal/models"
)

var ErrNotFound = errors.New("not found")

// InsertResult reports the per-row outcome of a batch insert.
// Failed is keyed by the row's index in the submitted batch.
type InsertResult struct {
	Inserted int
	Failed   map[int]error
}

// Fail records a failure of the i-th row of the batch.
func (r *InsertResult) Fail(i int, err error) {
	if r.Failed == nil {
		r.Failed = make(map[int]error)
	}
	r.Failed[i] = err
}

// Store persists score records and upload logs.
// Every single record write is atomic; batches are not.
type Store interface {
	AddScoreRecords(ctx context.Context, records []*models.ScoreRecord) (*InsertResult, error)
	// ListScoreRecords returns matches in (UploadedAt, ID) order.
	ListScoreRecords(ctx context.Context, filter models.Filter) ([]models.ScoreRecord, error)
	// ScanScoreRecords feeds matches to fn in (UploadedAt, ID) order without
	// materializing the whole set. A non-nil error from fn stops the scan.
	ScanScoreRecords(ctx context.Context, filter models.Filter, fn func(*models.ScoreRecord) error) error
	DistinctClasses(ctx context.Context) ([]string, error)

	AddUploadLog(ctx context.Context, log *models.UploadLog) error
	// ListUploadLogs returns logs with UploadedBy populated, oldest first.
	ListUploadLogs(ctx context.Context) ([]models.UploadLog, error)
}

// Identities is the staff account and session storage used by authentication.
type Identities interface {
	AddUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)

	CreateSession(ctx context.Context, user uint) (*models.Session, error)
	// FindUserBySession reports ErrNotFound for unknown tokens and for
	// sessions created before issuedAfter.
	FindUserBySession(ctx context.Context, token string, issuedAfter time.Time) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

type DuplicateKey struct {
	nested error
}

func NewDuplicateKey(err error) *DuplicateKey {
	return &DuplicateKey{err}
}

func (e *DuplicateKey) Error() string {
	return e.nested.Error()
}

func (e *DuplicateKey) Unwrap() error {
	return e.nested
}

func IsDuplicateKey(err error) bool {
	duplicateKey := &DuplicateKey{}
	return errors.As(err, &duplicateKey)
}
