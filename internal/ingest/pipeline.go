package ingest

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/bigredeye/gradebook/internal/blobs"
	lf "github.com/bigredeye/gradebook/internal/logfield"
	"github.com/bigredeye/gradebook/internal/models"
	"github.com/bigredeye/gradebook/internal/records"
)

const (
	DefaultBatchSize     = 200
	DefaultMaxInFlight   = 4
	DefaultNotifyTimeout = 10 * time.Second
)

// Notifier is told about every finished upload in the background, after
// Ingest has returned. Failures are only logged.
type Notifier interface {
	UploadFinished(ctx context.Context, log *models.UploadLog) error
}

type Options struct {
	BatchSize   int
	MaxInFlight int
	Notifier    Notifier
	// NotifyTimeout bounds a single notification.
	NotifyTimeout time.Duration
}

// Upload is one file handed to the pipeline.
type Upload struct {
	Body     io.Reader
	FileName string
	Uploader uint
}

// Stats are process-wide ingestion totals.
type Stats struct {
	Uploads       int64 `json:"uploads"`
	FailedUploads int64 `json:"failedUploads"`
	RowsInserted  int64 `json:"rowsInserted"`
	RowsFailed    int64 `json:"rowsFailed"`
}

type Pipeline struct {
	store    records.Store
	blobs    *blobs.Storage
	notifier Notifier
	logger   *zap.Logger

	batchSize     int
	maxInFlight   int64
	notifyTimeout time.Duration
	notifications sync.WaitGroup

	uploads       atomic.Int64
	failedUploads atomic.Int64
	rowsInserted  atomic.Int64
	rowsFailed    atomic.Int64

	now func() time.Time
}

func NewPipeline(store records.Store, storage *blobs.Storage, logger *zap.Logger, options Options) *Pipeline {
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBatchSize
	}
	if options.MaxInFlight <= 0 {
		options.MaxInFlight = DefaultMaxInFlight
	}
	if options.NotifyTimeout <= 0 {
		options.NotifyTimeout = DefaultNotifyTimeout
	}
	return &Pipeline{
		store:       store,
		blobs:       storage,
		notifier:    options.Notifier,
		logger:      logger.Named("ingest"),
		batchSize:   options.BatchSize,
		maxInFlight:   int64(options.MaxInFlight),
		notifyTimeout: options.NotifyTimeout,
		now:           time.Now,
	}
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Uploads:       p.uploads.Load(),
		FailedUploads: p.failedUploads.Load(),
		RowsInserted:  p.rowsInserted.Load(),
		RowsFailed:    p.rowsFailed.Load(),
	}
}

// Ingest stores the upload blob, persists every parsed row and writes exactly
// one upload log entry. Rows already persisted are kept when the upload fails.
// The returned error is set only when the log entry itself could not be written.
func (p *Pipeline) Ingest(ctx context.Context, upload Upload) (*Outcome, error) {
	start := p.now()
	outcome := &Outcome{FileName: upload.FileName}

	blob, err := p.blobs.Create(upload.FileName)
	if err != nil {
		outcome.FileID = uuid.New().String()
		outcome.Err = err
	} else {
		outcome.FileID = blob.ID
		p.ingest(ctx, io.TeeReader(upload.Body, blobWriteGuard{blob}), start, outcome)
		if outcome.Err != nil && errors.Is(outcome.Err, errBlobWrite) {
			blob.Abort()
		} else if err := blob.Commit(); err != nil && outcome.Err == nil {
			outcome.Err = err
		}
	}

	log := p.logger.With(lf.FileID(outcome.FileID), lf.FileName(outcome.FileName), lf.UserID(upload.Uploader))
	for i := range outcome.Failed {
		log.Warn("Rejected row", lf.Line(outcome.Failed[i].Line), lf.StudentID(outcome.Failed[i].StudentID), zap.Error(outcome.Failed[i].Err))
	}

	entry := &models.UploadLog{
		FileID:       outcome.FileID,
		UploadedByID: upload.Uploader,
		FileName:     upload.FileName,
		Status:       outcome.Status(),
		RowsInserted: outcome.Inserted,
		RowsFailed:   len(outcome.Failed),
		Error:        outcome.Summary(),
		Timestamp:    p.now(),
	}
	if err := p.store.AddUploadLog(ctx, entry); err != nil {
		log.Error("Failed to write upload log", zap.Error(err))
		return outcome, err
	}

	p.uploads.Inc()
	if !outcome.Successful() {
		p.failedUploads.Inc()
	}
	p.rowsInserted.Add(int64(outcome.Inserted))
	p.rowsFailed.Add(int64(len(outcome.Failed)))

	fields := []zap.Field{
		lf.Status(entry.Status),
		lf.Rows(outcome.Rows),
		zap.Int("inserted", outcome.Inserted),
		zap.Int("failed", len(outcome.Failed)),
		zap.Duration("elapsed", p.now().Sub(start)),
	}
	if blob != nil {
		fields = append(fields, zap.String("size", units.HumanSize(float64(blob.Size()))))
	}
	if outcome.Successful() {
		log.Info("Processed upload", fields...)
	} else {
		log.Warn("Upload failed", append(fields, zap.Error(outcome.Err))...)
	}

	if p.notifier != nil {
		p.notifications.Add(1)
		go p.notify(log, entry)
	}

	return outcome, nil
}

func (p *Pipeline) notify(log *zap.Logger, entry *models.UploadLog) {
	defer p.notifications.Done()

	ctx, cancel := context.WithTimeout(context.Background(), p.notifyTimeout)
	defer cancel()
	if err := p.notifier.UploadFinished(ctx, entry); err != nil {
		log.Warn("Failed to notify about upload", zap.Error(err))
	}
}

// Wait blocks until notifications of finished uploads are delivered or timed out.
func (p *Pipeline) Wait() {
	p.notifications.Wait()
}

var errBlobWrite = errors.New("failed to store upload")

// blobWriteGuard tags errors coming from the blob side of the tee so the
// pipeline can tell them from errors of the request body.
type blobWriteGuard struct {
	w io.Writer
}

func (g blobWriteGuard) Write(p []byte) (int, error) {
	n, err := g.w.Write(p)
	if err != nil {
		return n, &blobError{err}
	}
	return n, nil
}

type blobError struct {
	err error
}

func (e *blobError) Error() string {
	return errBlobWrite.Error() + ": " + e.err.Error()
}

func (e *blobError) Is(target error) bool {
	return target == errBlobWrite
}

func (e *blobError) Unwrap() error {
	return e.err
}

// ingest streams rows out of body and persists them in concurrently flushed batches.
func (p *Pipeline) ingest(ctx context.Context, body io.Reader, uploadedAt time.Time, outcome *Outcome) {
	rows, err := newRowReader(body)
	if err != nil {
		outcome.Err = err
		return
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		inserted atomic.Int64
		sem      = semaphore.NewWeighted(p.maxInFlight)
	)
	fail := func(rowErr RowError) {
		mu.Lock()
		outcome.Failed = append(outcome.Failed, rowErr)
		mu.Unlock()
	}

	flush := func(batch []*models.ScoreRecord, lines []int) error {
		if len(batch) == 0 {
			return nil
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			for i := range batch {
				fail(RowError{Line: lines[i], StudentID: batch[i].StudentID, Err: err})
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			res, err := p.store.AddScoreRecords(ctx, batch)
			if err != nil {
				for i := range batch {
					fail(RowError{Line: lines[i], StudentID: batch[i].StudentID, Err: err})
				}
				return
			}
			inserted.Add(int64(res.Inserted))
			for i, cause := range res.Failed {
				fail(RowError{Line: lines[i], StudentID: batch[i].StudentID, Err: cause})
			}
		}()
		return nil
	}

	batch := make([]*models.ScoreRecord, 0, p.batchSize)
	lines := make([]int, 0, p.batchSize)
	for {
		record, line, err := rows.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var validationErr *ValidationError
			if errors.As(err, &validationErr) {
				outcome.Rows++
				fail(RowError{Line: line, Err: err})
				continue
			}
			outcome.Err = err
			break
		}

		outcome.Rows++
		record.UploadedAt = uploadedAt
		record.FileID = outcome.FileID
		batch = append(batch, record)
		lines = append(lines, line)

		if len(batch) == p.batchSize {
			if err := flush(batch, lines); err != nil {
				outcome.Err = err
				batch = nil
				break
			}
			batch = make([]*models.ScoreRecord, 0, p.batchSize)
			lines = make([]int, 0, p.batchSize)
		}
	}

	if outcome.Err == nil {
		if err := flush(batch, lines); err != nil {
			outcome.Err = err
		}
	}
	wg.Wait()

	outcome.Inserted = int(inserted.Load())
	sort.Slice(outcome.Failed, func(i, j int) bool {
		return outcome.Failed[i].Line < outcome.Failed[j].Line
	})
}
