// Package inmemdb keeps everything in process memory. It backs tests and
// local runs without postgres.
package inmemdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/bigredeye/gradebook/internal/models"
	"github.com/bigredeye/gradebook/internal/records"
)

type DB struct {
	mutex sync.RWMutex

	scores   []models.ScoreRecord
	logs     []models.UploadLog
	users    map[uint]*models.User
	sessions map[string]models.Session

	scoreSeq uint
	logSeq   uint
	userSeq  uint

	// RejectRecord, when set, fails single record writes it returns an error for.
	RejectRecord func(record *models.ScoreRecord) error
	// Err, when set, is returned by every read and by upload log writes.
	Err error

	now func() time.Time
}

var (
	_ records.Store      = (*DB)(nil)
	_ records.Identities = (*DB)(nil)
)

func Open() *DB {
	return &DB{
		users:    make(map[uint]*models.User),
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

func (db *DB) AddScoreRecords(ctx context.Context, batch []*models.ScoreRecord) (*records.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	res := &records.InsertResult{}
	for i, record := range batch {
		if db.RejectRecord != nil {
			if err := db.RejectRecord(record); err != nil {
				res.Fail(i, err)
				continue
			}
		}
		db.scoreSeq++
		record.ID = db.scoreSeq
		if record.UploadedAt.IsZero() {
			record.UploadedAt = db.now()
		}
		db.scores = append(db.scores, *record)
		res.Inserted++
	}
	return res, nil
}

func (db *DB) query(filter models.Filter) []models.ScoreRecord {
	result := make([]models.ScoreRecord, 0)
	for i := range db.scores {
		if filter.Match(&db.scores[i]) {
			result = append(result, db.scores[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return models.RetrievalLess(&result[i], &result[j])
	})
	return result
}

func (db *DB) ListScoreRecords(ctx context.Context, filter models.Filter) ([]models.ScoreRecord, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if db.Err != nil {
		return nil, db.Err
	}
	return db.query(filter), nil
}

func (db *DB) ScanScoreRecords(ctx context.Context, filter models.Filter, fn func(*models.ScoreRecord) error) error {
	db.mutex.RLock()
	if db.Err != nil {
		db.mutex.RUnlock()
		return db.Err
	}
	matched := db.query(filter)
	db.mutex.RUnlock()

	for i := range matched {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&matched[i]); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) DistinctClasses(ctx context.Context) ([]string, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if db.Err != nil {
		return nil, db.Err
	}
	set := make(map[string]struct{})
	for i := range db.scores {
		set[db.scores[i].Class] = struct{}{}
	}
	classes := maps.Keys(set)
	slices.Sort(classes)
	return classes, nil
}

func (db *DB) AddUploadLog(ctx context.Context, log *models.UploadLog) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.Err != nil {
		return db.Err
	}
	for i := range db.logs {
		if db.logs[i].FileID == log.FileID {
			return records.NewDuplicateKey(errDuplicateFileID)
		}
	}
	db.logSeq++
	log.ID = db.logSeq
	if log.Timestamp.IsZero() {
		log.Timestamp = db.now()
	}
	stored := *log
	stored.UploadedBy = nil
	db.logs = append(db.logs, stored)
	return nil
}

func (db *DB) ListUploadLogs(ctx context.Context) ([]models.UploadLog, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if db.Err != nil {
		return nil, db.Err
	}
	logs := make([]models.UploadLog, 0, len(db.logs))
	for _, log := range db.logs {
		if usr, ok := db.users[log.UploadedByID]; ok {
			copied := *usr
			log.UploadedBy = &copied
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func (db *DB) AddUser(ctx context.Context, user *models.User) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for _, usr := range db.users {
		if usr.Email == user.Email {
			return records.NewDuplicateKey(errDuplicateEmail)
		}
	}
	db.userSeq++
	user.ID = db.userSeq
	if user.CreatedAt.IsZero() {
		user.CreatedAt = db.now()
	}
	stored := *user
	db.users[user.ID] = &stored
	return nil
}

func (db *DB) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	for _, usr := range db.users {
		if usr.Email == email {
			copied := *usr
			return &copied, nil
		}
	}
	return nil, records.ErrNotFound
}

func (db *DB) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if usr, ok := db.users[id]; ok {
		copied := *usr
		return &copied, nil
	}
	return nil, records.ErrNotFound
}

func (db *DB) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if db.Err != nil {
		return nil, db.Err
	}
	users := make([]models.User, 0)
	for _, usr := range db.users {
		if usr.Role == role {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (db *DB) CreateSession(ctx context.Context, user uint) (*models.Session, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	session := &models.Session{
		Token:     uuid.New().String(),
		UserID:    user,
		CreatedAt: db.now(),
	}
	db.sessions[session.Token] = *session
	return session, nil
}

func (db *DB) FindUserBySession(ctx context.Context, token string, issuedAfter time.Time) (*models.User, error) {
	db.mutex.RLock()
	session, ok := db.sessions[token]
	db.mutex.RUnlock()
	if !ok || session.CreatedAt.Before(issuedAfter) {
		return nil, records.ErrNotFound
	}
	return db.FindUserByID(ctx, session.UserID)
}

func (db *DB) DeleteSession(ctx context.Context, token string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	delete(db.sessions, token)
	return nil
}
