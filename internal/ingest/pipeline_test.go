package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bigredeye/gradebook/internal/blobs"
	inmemdb "github.com/bigredeye/gradebook/internal/database/inmem"
	"github.com/bigredeye/gradebook/internal/models"
)

const header = "studentID,studentName,class,examName,subject,score\n"

const someScores = header + `S1,Alice,10A,Midterm,Math,72
S2,Bob,10A,Midterm,Math,88
S3,Carol,10B,Midterm,Math,45
S4,Dan,10B,Midterm,Physics,91.5
`

type fakeNotifier struct {
	mu   sync.Mutex
	logs []*models.UploadLog
}

func (n *fakeNotifier) UploadFinished(ctx context.Context, log *models.UploadLog) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logs = append(n.logs, log)
	return nil
}

type failingReader struct {
	body io.Reader
}

func (r *failingReader) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)
	if err == io.EOF {
		return n, errors.New("connection reset")
	}
	return n, err
}

func newTestPipeline(t *testing.T, batchSize int) (*Pipeline, *inmemdb.DB, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := blobs.NewStorage(dir)
	if err != nil {
		t.Fatal("Failed to create blob storage:", err)
	}
	db := inmemdb.Open()
	return NewPipeline(db, storage, zap.NewNop(), Options{BatchSize: batchSize, MaxInFlight: 2}), db, dir
}

func ingestString(t *testing.T, p *Pipeline, body string) *Outcome {
	t.Helper()
	outcome, err := p.Ingest(context.Background(), Upload{Body: strings.NewReader(body), FileName: "scores.csv", Uploader: 1})
	if err != nil {
		t.Fatal("Failed to ingest:", err)
	}
	return outcome
}

func listAll(t *testing.T, db *inmemdb.DB) []models.ScoreRecord {
	t.Helper()
	scores, err := db.ListScoreRecords(context.Background(), models.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	return scores
}

func listLogs(t *testing.T, db *inmemdb.DB) []models.UploadLog {
	t.Helper()
	logs, err := db.ListUploadLogs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return logs
}

func TestIngestWellFormedFile(t *testing.T) {
	for _, batchSize := range []int{1, 3, 100} {
		t.Run(fmt.Sprintf("batch=%d", batchSize), func(t *testing.T) {
			p, db, dir := newTestPipeline(t, batchSize)

			outcome := ingestString(t, p, someScores)
			if !outcome.Successful() {
				t.Fatalf("Unexpected failure: %s", outcome.Summary())
			}
			if outcome.Rows != 4 || outcome.Inserted != 4 {
				t.Fatalf("Invalid rows: %d/%d, expected: 4/4", outcome.Inserted, outcome.Rows)
			}

			scores := listAll(t, db)
			if len(scores) != 4 {
				t.Fatalf("Invalid number of records: %d, expected: %d", len(scores), 4)
			}
			for i := range scores {
				if scores[i].FileID != outcome.FileID {
					t.Fatalf("Record %d has file id %q, expected %q", i, scores[i].FileID, outcome.FileID)
				}
				if !scores[i].UploadedAt.Equal(scores[0].UploadedAt) {
					t.Fatalf("Records of one upload have different timestamps")
				}
			}

			logs := listLogs(t, db)
			if len(logs) != 1 {
				t.Fatalf("Invalid number of logs: %d, expected: %d", len(logs), 1)
			}
			if logs[0].Status != models.UploadStatusSuccessful || logs[0].FileID != outcome.FileID || logs[0].RowsInserted != 4 {
				t.Fatalf("Unexpected log %+v", logs[0])
			}

			stored, err := os.ReadFile(filepath.Join(dir, outcome.FileID+"-scores.csv"))
			if err != nil {
				t.Fatal("Blob was not stored:", err)
			}
			if string(stored) != someScores {
				t.Fatalf("Stored blob differs from the upload")
			}
		})
	}
}

func TestIngestReuploadDuplicatesRecords(t *testing.T) {
	p, db, _ := newTestPipeline(t, 2)

	first := ingestString(t, p, someScores)
	second := ingestString(t, p, someScores)
	if first.FileID == second.FileID {
		t.Fatalf("Uploads share file id %q", first.FileID)
	}

	if scores := listAll(t, db); len(scores) != 8 {
		t.Fatalf("Invalid number of records: %d, expected: %d", len(scores), 8)
	}
	if logs := listLogs(t, db); len(logs) != 2 {
		t.Fatalf("Invalid number of logs: %d, expected: %d", len(logs), 2)
	}

	stats := p.Stats()
	if stats.Uploads != 2 || stats.FailedUploads != 0 || stats.RowsInserted != 8 {
		t.Fatalf("Unexpected stats %+v", stats)
	}
}

func TestIngestInvalidRowsAreSkipped(t *testing.T) {
	p, db, _ := newTestPipeline(t, 2)

	body := header + `S1,Alice,10A,Midterm,Math,72
S2,Bob,10A,Midterm,Math,absent
S3,,10B,Midterm,Math,45
S4,Dan,10B,Midterm,Math,60
`
	outcome := ingestString(t, p, body)
	if outcome.Err != nil {
		t.Fatal("Unexpected structural error:", outcome.Err)
	}
	if outcome.Rows != 4 || outcome.Inserted != 2 || len(outcome.Failed) != 2 {
		t.Fatalf("Unexpected outcome: rows %d, inserted %d, failed %d", outcome.Rows, outcome.Inserted, len(outcome.Failed))
	}
	if outcome.Failed[0].Line != 3 || outcome.Failed[1].Line != 4 {
		t.Fatalf("Unexpected failed lines %d, %d", outcome.Failed[0].Line, outcome.Failed[1].Line)
	}

	var validationErr *ValidationError
	if !errors.As(outcome.Failed[0].Err, &validationErr) || validationErr.Field != ColumnScore {
		t.Fatalf("Unexpected row error %v", outcome.Failed[0].Err)
	}

	logs := listLogs(t, db)
	if len(logs) != 1 || logs[0].Status != models.UploadStatusError || logs[0].RowsFailed != 2 {
		t.Fatalf("Unexpected logs %+v", logs)
	}
	if len(listAll(t, db)) != 2 {
		t.Fatalf("Valid rows were not kept")
	}
}

func TestIngestMalformedFile(t *testing.T) {
	p, db, _ := newTestPipeline(t, 1)

	body := header + `S1,Alice,10A,Midterm,Math,72
S2,Bob,10A,Midterm,Math
S3,Carol,10B,Midterm,Math,45
`
	outcome := ingestString(t, p, body)
	if outcome.Err == nil {
		t.Fatalf("Expected the file to be rejected")
	}
	if outcome.Inserted != 1 {
		t.Fatalf("Invalid number of inserted rows: %d, expected: %d", outcome.Inserted, 1)
	}

	logs := listLogs(t, db)
	if len(logs) != 1 || logs[0].Status != models.UploadStatusError || logs[0].Error == "" {
		t.Fatalf("Unexpected logs %+v", logs)
	}
	if stats := p.Stats(); stats.FailedUploads != 1 {
		t.Fatalf("Unexpected stats %+v", stats)
	}
}

func TestIngestMissingColumn(t *testing.T) {
	p, db, _ := newTestPipeline(t, 10)

	outcome := ingestString(t, p, "studentID,studentName,class,examName,score\nS1,Alice,10A,Midterm,72\n")

	var validationErr *ValidationError
	if !errors.As(outcome.Err, &validationErr) || validationErr.Field != ColumnSubject {
		t.Fatalf("Unexpected error %v", outcome.Err)
	}
	if len(listAll(t, db)) != 0 {
		t.Fatalf("Records were stored for a file without header")
	}
	if logs := listLogs(t, db); len(logs) != 1 || logs[0].Status != models.UploadStatusError {
		t.Fatalf("Unexpected logs %+v", logs)
	}
}

func TestIngestEmptyFile(t *testing.T) {
	p, db, _ := newTestPipeline(t, 10)

	outcome := ingestString(t, p, "")
	if !errors.Is(outcome.Err, ErrEmptyFile) {
		t.Fatalf("Unexpected error %v", outcome.Err)
	}
	if logs := listLogs(t, db); len(logs) != 1 || logs[0].Status != models.UploadStatusError {
		t.Fatalf("Unexpected logs %+v", logs)
	}
}

func TestIngestHeaderOnly(t *testing.T) {
	p, db, _ := newTestPipeline(t, 10)

	outcome := ingestString(t, p, header)
	if !outcome.Successful() || outcome.Rows != 0 {
		t.Fatalf("Unexpected outcome %+v", outcome)
	}
	if logs := listLogs(t, db); len(logs) != 1 || logs[0].Status != models.UploadStatusSuccessful {
		t.Fatalf("Unexpected logs %+v", logs)
	}
}

func TestIngestStoreRejectsRows(t *testing.T) {
	p, db, _ := newTestPipeline(t, 3)
	rejected := errors.New("constraint violated")
	db.RejectRecord = func(record *models.ScoreRecord) error {
		if record.StudentID == "S2" {
			return rejected
		}
		return nil
	}

	outcome := ingestString(t, p, someScores)
	if outcome.Inserted != 3 || len(outcome.Failed) != 1 {
		t.Fatalf("Unexpected outcome: inserted %d, failed %d", outcome.Inserted, len(outcome.Failed))
	}
	failed := outcome.Failed[0]
	if failed.Line != 3 || failed.StudentID != "S2" || !errors.Is(&failed, rejected) {
		t.Fatalf("Unexpected row error %+v", failed)
	}

	logs := listLogs(t, db)
	if len(logs) != 1 || logs[0].Status != models.UploadStatusError || logs[0].RowsInserted != 3 {
		t.Fatalf("Unexpected logs %+v", logs)
	}
}

func TestIngestBrokenBody(t *testing.T) {
	p, db, _ := newTestPipeline(t, 10)

	outcome, err := p.Ingest(context.Background(), Upload{
		Body:     &failingReader{strings.NewReader(someScores)},
		FileName: "scores.csv",
		Uploader: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Err == nil {
		t.Fatalf("Expected read error")
	}
	if logs := listLogs(t, db); len(logs) != 1 || logs[0].Status != models.UploadStatusError {
		t.Fatalf("Unexpected logs %+v", logs)
	}
}

func TestIngestLogWriteFailure(t *testing.T) {
	p, db, _ := newTestPipeline(t, 10)
	db.Err = errors.New("database is down")

	_, err := p.Ingest(context.Background(), Upload{Body: strings.NewReader(someScores), FileName: "scores.csv"})
	if err == nil {
		t.Fatalf("Expected log write error")
	}
}

func TestIngestNotifies(t *testing.T) {
	storage, err := blobs.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	notifier := &fakeNotifier{}
	p := NewPipeline(inmemdb.Open(), storage, zap.NewNop(), Options{Notifier: notifier})

	outcome := ingestString(t, p, someScores)
	p.Wait()
	if len(notifier.logs) != 1 || notifier.logs[0].FileID != outcome.FileID {
		t.Fatalf("Unexpected notifications %+v", notifier.logs)
	}
}

type stalledNotifier struct {
	release chan struct{}
	err     chan error
}

func (n *stalledNotifier) UploadFinished(ctx context.Context, log *models.UploadLog) error {
	select {
	case <-n.release:
		n.err <- nil
		return nil
	case <-ctx.Done():
		n.err <- ctx.Err()
		return ctx.Err()
	}
}

func TestSlowNotifierDoesNotDelayIngest(t *testing.T) {
	storage, err := blobs.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	notifier := &stalledNotifier{release: make(chan struct{}), err: make(chan error, 1)}
	p := NewPipeline(inmemdb.Open(), storage, zap.NewNop(), Options{Notifier: notifier, NotifyTimeout: time.Hour})

	done := make(chan *Outcome)
	go func() {
		outcome, _ := p.Ingest(context.Background(), Upload{Body: strings.NewReader(someScores), FileName: "scores.csv"})
		done <- outcome
	}()

	select {
	case outcome := <-done:
		if !outcome.Successful() {
			t.Fatalf("Unexpected outcome: %s", outcome.Summary())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Ingest is blocked by the notifier")
	}

	close(notifier.release)
	p.Wait()
	if err := <-notifier.err; err != nil {
		t.Fatalf("Notification failed: %v", err)
	}
}

func TestNotifyTimeout(t *testing.T) {
	storage, err := blobs.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	notifier := &stalledNotifier{release: make(chan struct{}), err: make(chan error, 1)}
	p := NewPipeline(inmemdb.Open(), storage, zap.NewNop(), Options{Notifier: notifier, NotifyTimeout: 10 * time.Millisecond})

	ingestString(t, p, someScores)
	p.Wait()
	if err := <-notifier.err; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
}
