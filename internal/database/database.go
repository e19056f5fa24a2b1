package database

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"moul.io/zapgorm2"

	"github.com/bigredeye/gradebook/internal/models"
	"github.com/bigredeye/gradebook/internal/records"
)

type DataBase struct {
	*gorm.DB
}

var (
	_ records.Store      = (*DataBase)(nil)
	_ records.Identities = (*DataBase)(nil)
)

// gorm does not translate driver errors
// https://github.com/go-gorm/gorm/issues/4037
func isUniqueViolation(err error) bool {
	var perr *pgconn.PgError
	if errors.As(err, &perr) {
		return perr.Code == "23505"
	}
	return false
}

func wrapWriteError(err error) error {
	if err != nil && isUniqueViolation(err) {
		return records.NewDuplicateKey(err)
	}
	return err
}

func wrapReadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return records.ErrNotFound
	}
	return err
}

// OpenDataBase connects to postgres, retrying with exponential backoff for up
// to connectTimeout, and migrates the schema.
func OpenDataBase(logger *zap.Logger, dsn string, connectTimeout time.Duration) (*DataBase, error) {
	zapLogger := zapgorm2.New(logger.Named("gorm"))
	zapLogger.SetAsDefault()

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectTimeout

	var db *gorm.DB
	err := backoff.RetryNotify(func() (err error) {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: zapLogger,
		})
		return err
	}, policy, func(err error, next time.Duration) {
		logger.Warn("Failed to connect to database, retrying", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.User{}, &models.Session{}, &models.ScoreRecord{}, &models.UploadLog{})
	if err != nil {
		return nil, err
	}

	return &DataBase{db}, nil
}

func filterScope(filter models.Filter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if filter.StudentID != "" {
			tx = tx.Where("student_id = ?", filter.StudentID)
		}
		if filter.Class != "" {
			tx = tx.Where("class = ?", filter.Class)
		}
		if filter.ExamName != "" {
			tx = tx.Where("exam_name = ?", filter.ExamName)
		}
		if filter.Subject != "" {
			tx = tx.Where("subject = ?", filter.Subject)
		}
		return tx.Order("uploaded_at, id")
	}
}

// AddScoreRecords tries a single multi-row insert first. That statement is
// all-or-nothing, so on failure every row is retried alone to find the culprits.
func (db *DataBase) AddScoreRecords(ctx context.Context, batch []*models.ScoreRecord) (*records.InsertResult, error) {
	res := &records.InsertResult{}
	if len(batch) == 0 {
		return res, nil
	}

	err := db.WithContext(ctx).Create(&batch).Error
	if err == nil {
		res.Inserted = len(batch)
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	for i, record := range batch {
		record.ID = 0
		if err := db.WithContext(ctx).Create(record).Error; err != nil {
			res.Fail(i, wrapWriteError(err))
			continue
		}
		res.Inserted++
	}
	return res, nil
}

func (db *DataBase) ListScoreRecords(ctx context.Context, filter models.Filter) (result []models.ScoreRecord, err error) {
	result = make([]models.ScoreRecord, 0)
	err = db.WithContext(ctx).Scopes(filterScope(filter)).Find(&result).Error
	if err != nil {
		result = nil
	}
	return
}

func (db *DataBase) ScanScoreRecords(ctx context.Context, filter models.Filter, fn func(*models.ScoreRecord) error) error {
	rows, err := db.WithContext(ctx).Model(&models.ScoreRecord{}).Scopes(filterScope(filter)).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var record models.ScoreRecord
		if err := db.ScanRows(rows, &record); err != nil {
			return err
		}
		if err := fn(&record); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (db *DataBase) DistinctClasses(ctx context.Context) (classes []string, err error) {
	classes = make([]string, 0)
	err = db.WithContext(ctx).
		Model(&models.ScoreRecord{}).
		Distinct("class").
		Order("class").
		Pluck("class", &classes).
		Error
	if err != nil {
		classes = nil
	}
	return
}

func (db *DataBase) AddUploadLog(ctx context.Context, log *models.UploadLog) error {
	return wrapWriteError(db.WithContext(ctx).Create(log).Error)
}

func (db *DataBase) ListUploadLogs(ctx context.Context) (logs []models.UploadLog, err error) {
	logs = make([]models.UploadLog, 0)
	err = db.WithContext(ctx).Preload("UploadedBy").Order("timestamp, id").Find(&logs).Error
	if err != nil {
		logs = nil
	}
	return
}

func (db *DataBase) AddUser(ctx context.Context, user *models.User) error {
	return wrapWriteError(db.WithContext(ctx).Create(user).Error)
}

func (db *DataBase) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, wrapReadError(err)
	}
	return &user, nil
}

func (db *DataBase) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, wrapReadError(err)
	}
	return &user, nil
}

func (db *DataBase) ListUsersByRole(ctx context.Context, role models.Role) (users []models.User, err error) {
	users = make([]models.User, 0)
	err = db.WithContext(ctx).Where("role = ?", role).Order("id").Find(&users).Error
	if err != nil {
		users = nil
	}
	return
}

func (db *DataBase) CreateSession(ctx context.Context, user uint) (*models.Session, error) {
	session := &models.Session{
		Token:  uuid.New().String(),
		UserID: user,
	}
	res := db.WithContext(ctx).Create(session)
	if res.Error != nil {
		return nil, res.Error
	}
	return session, nil
}

// liveSession matches the session only while it is younger than the token ttl.
func liveSession(token string, issuedAfter time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("token = ? AND created_at >= ?", token, issuedAfter)
	}
}

func (db *DataBase) findSession(ctx context.Context, token string, issuedAfter time.Time) (*models.Session, error) {
	var session models.Session
	res := db.WithContext(ctx).Scopes(liveSession(token, issuedAfter)).Take(&session)
	if res.Error != nil {
		return nil, wrapReadError(res.Error)
	}
	return &session, nil
}

func (db *DataBase) FindUserBySession(ctx context.Context, token string, issuedAfter time.Time) (*models.User, error) {
	session, err := db.findSession(ctx, token, issuedAfter)
	if err != nil {
		return nil, err
	}
	return db.FindUserByID(ctx, session.UserID)
}

func (db *DataBase) DeleteSession(ctx context.Context, token string) error {
	return db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}
