package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ndstyle/mindflow-backend/internal/logger"
	"github.com/ndstyle/mindflow-backend/internal/repos"
	"github.com/ndstyle/mindflow-backend/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "mindflow_test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.Document{}, &types.JobRun{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type workerFixture struct {
	db       *gorm.DB
	jobRepo  repos.JobRunRepo
	docRepo  repos.DocumentRepo
	registry *Registry
	worker   *Worker
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	db := openTestDB(t)
	log := logger.NewNop()
	jobRepo := repos.NewJobRunRepo(db, log)
	docRepo := repos.NewDocumentRepo(db, log)
	registry := NewRegistry()
	return &workerFixture{
		db:       db,
		jobRepo:  jobRepo,
		docRepo:  docRepo,
		registry: registry,
		worker:   NewWorker(log, jobRepo, docRepo, registry, 1),
	}
}

func (f *workerFixture) seedDocWithJob(t *testing.T) (*types.Document, *types.JobRun) {
	t.Helper()
	doc := &types.Document{
		OwnerID:       uuid.New(),
		OriginalName:  "notes.txt",
		DocType:       types.DocTypeTXT,
		Status:        types.DocumentStatusProcessing,
		ExtractedText: "text",
	}
	if err := f.db.Create(doc).Error; err != nil {
		t.Fatalf("seed doc: %v", err)
	}
	job := &types.JobRun{
		JobType:  "document_process",
		EntityID: &doc.ID,
		Status:   types.JobStatusQueued,
	}
	created, err := f.jobRepo.Create(context.Background(), nil, []*types.JobRun{job})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return doc, created[0]
}

func (f *workerFixture) claim(t *testing.T) *types.JobRun {
	t.Helper()
	job, err := f.jobRepo.ClaimNextRunnable(context.Background(), nil, maxJobAttempts, retryDelay, staleRunning)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job == nil {
		t.Fatalf("expected a claimable job")
	}
	return job
}

func (f *workerFixture) reloadJob(t *testing.T, id uuid.UUID) *types.JobRun {
	t.Helper()
	var row types.JobRun
	if err := f.db.Where("id = ?", id).First(&row).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	return &row
}

func TestRunOne_Success(t *testing.T) {
	f := newWorkerFixture(t)
	_, job := f.seedDocWithJob(t)

	var handled []uuid.UUID
	f.registry.Register("document_process", HandlerFunc(func(ctx context.Context, j *types.JobRun) error {
		handled = append(handled, j.ID)
		return nil
	}))

	f.worker.runOne(context.Background(), f.claim(t))

	if len(handled) != 1 || handled[0] != job.ID {
		t.Fatalf("handled=%v", handled)
	}
	if got := f.reloadJob(t, job.ID); got.Status != types.JobStatusSucceeded {
		t.Fatalf("status=%q, want succeeded", got.Status)
	}
}

func TestRunOne_HandlerErrorMarksFailed(t *testing.T) {
	f := newWorkerFixture(t)
	doc, job := f.seedDocWithJob(t)

	f.registry.Register("document_process", HandlerFunc(func(ctx context.Context, j *types.JobRun) error {
		return errors.New("transient failure")
	}))

	f.worker.runOne(context.Background(), f.claim(t))

	got := f.reloadJob(t, job.ID)
	if got.Status != types.JobStatusFailed || got.Error != "transient failure" {
		t.Fatalf("job=%+v", got)
	}
	// first failure: the document keeps processing, a retry is still coming
	reloaded, _ := f.docRepo.GetByID(context.Background(), nil, doc.ID)
	if reloaded.Status != types.DocumentStatusProcessing {
		t.Fatalf("doc status=%q, want processing", reloaded.Status)
	}
}

func TestRunOne_ExhaustedAttemptsFailDocument(t *testing.T) {
	f := newWorkerFixture(t)
	doc, job := f.seedDocWithJob(t)

	f.registry.Register("document_process", HandlerFunc(func(ctx context.Context, j *types.JobRun) error {
		return errors.New("permanent failure")
	}))

	for i := 0; i < maxJobAttempts; i++ {
		f.worker.runOne(context.Background(), f.claim(t))
		if err := f.db.Model(&types.JobRun{}).Where("id = ?", job.ID).
			Update("last_error_at", time.Now().Add(-2*retryDelay)).Error; err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}

	reloaded, _ := f.docRepo.GetByID(context.Background(), nil, doc.ID)
	if reloaded.Status != types.DocumentStatusFailed {
		t.Fatalf("doc status=%q, want failed after exhausted attempts", reloaded.Status)
	}
}

func TestRunOne_PanicIsRecovered(t *testing.T) {
	f := newWorkerFixture(t)
	_, job := f.seedDocWithJob(t)

	f.registry.Register("document_process", HandlerFunc(func(ctx context.Context, j *types.JobRun) error {
		panic("handler exploded")
	}))

	f.worker.runOne(context.Background(), f.claim(t))

	got := f.reloadJob(t, job.ID)
	if got.Status != types.JobStatusFailed {
		t.Fatalf("status=%q, want failed", got.Status)
	}
	if got.Error == "" {
		t.Fatalf("panic must be recorded on the job row")
	}
}

func TestRunOne_UnregisteredJobType(t *testing.T) {
	f := newWorkerFixture(t)
	_, job := f.seedDocWithJob(t)

	f.worker.runOne(context.Background(), f.claim(t))

	got := f.reloadJob(t, job.ID)
	if got.Status != types.JobStatusFailed {
		t.Fatalf("status=%q, want failed for unregistered type", got.Status)
	}
}

// A handler that outlives the stale-running cutoff must keep its job's
// heartbeat fresh so another worker cannot re-claim it mid-flight.
func TestKeepAliveExtendsHeartbeat(t *testing.T) {
	f := newWorkerFixture(t)
	_, job := f.seedDocWithJob(t)
	claimed := f.claim(t)

	stale := time.Now().Add(-2 * staleRunning)
	if err := f.db.Model(&types.JobRun{}).Where("id = ?", job.ID).
		Update("heartbeat_at", stale).Error; err != nil {
		t.Fatalf("age heartbeat: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.worker.keepAlive(ctx, claimed.ID, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		row := f.reloadJob(t, job.ID)
		if row.HeartbeatAt != nil && row.HeartbeatAt.After(stale.Add(time.Second)) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("heartbeat never refreshed; heartbeat_at=%v", row.HeartbeatAt)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	// the refreshed heartbeat keeps the job out of the claimable set
	reclaimed, err := f.jobRepo.ClaimNextRunnable(context.Background(), nil, maxJobAttempts, retryDelay, staleRunning)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if reclaimed != nil {
		t.Fatalf("live job was re-claimed: %+v", reclaimed)
	}
}

func TestDocumentProcessHandler_MissingEntity(t *testing.T) {
	h := NewDocumentProcessHandler(nil)
	err := h.Run(context.Background(), &types.JobRun{ID: uuid.New(), JobType: "document_process"})
	if err == nil {
		t.Fatalf("expected error for job without entity id")
	}
}
