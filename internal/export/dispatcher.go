package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/leapstack-labs/leaptable/internal/metrics"
	"github.com/leapstack-labs/leaptable/internal/state"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

// QueuedMessage is returned to clients when an export is deferred.
const QueuedMessage = "Export queued successfully"

// ErrNotReady is returned when downloading a job that has not completed.
var ErrNotReady = errors.New("export is still being generated")

// TableLookup resolves table names for background jobs.
type TableLookup interface {
	Get(name string) (*datatable.Table, error)
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Workers     int    // concurrent export jobs
	DownloadURL string // path or URL of the download endpoint
	Prefix      string // storage key prefix, "exports" by default
	Logger      *slog.Logger
}

// Dispatcher runs deferred exports on a bounded worker pool and hands out
// signed download links. Pending job records are the queue: Dispatch only
// records a job and wakes a worker, and workers keep claiming pending jobs
// until none are left.
type Dispatcher struct {
	exporter *datatable.Exporter
	tables   TableLookup
	store    state.Store
	storage  Storage
	signer   *Signer
	pool     *ants.Pool
	cfg      DispatcherConfig
	logger   *slog.Logger
	wg       sync.WaitGroup
	now      func() time.Time

	mu     sync.Mutex
	active int // workers started and not yet stopped
}

// NewDispatcher creates a dispatcher. Attach it with
// exporter.SetDispatcher.
func NewDispatcher(exporter *datatable.Exporter, tables TableLookup, store state.Store, storage Storage, signer *Signer, cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "exports"
	}
	if cfg.DownloadURL == "" {
		cfg.DownloadURL = "/exports/download"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dispatcher{
		exporter: exporter,
		tables:   tables,
		store:    store,
		storage:  storage,
		signer:   signer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(v any) {
		d.logger.Error("export worker panic", slog.Any("panic", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create export worker pool: %w", err)
	}
	d.pool = pool
	return d, nil
}

// Dispatch records the job and queues it. The returned link is valid for
// the signer's expiry.
func (d *Dispatcher) Dispatch(ctx context.Context, job datatable.ExportJob) (*datatable.Deferred, error) {
	enc, err := d.exporter.Encoder(job.Format)
	if err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = d.now()
	}

	snapshot, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export job: %w", err)
	}
	key := path.Join(d.cfg.Prefix, fmt.Sprintf("export-%s-%s.%s", job.ID, job.RequestedAt.Format("2006-01-02"), enc.Extension()))

	token, err := d.signer.Sign(job.ID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign download link: %w", err)
	}

	record := &state.Job{
		ID:        job.ID,
		Table:     job.Table,
		Format:    job.Format,
		Request:   snapshot,
		ObjectKey: key,
		CreatedAt: job.RequestedAt.UTC(),
		ExpiresAt: job.RequestedAt.Add(d.signer.expiry).UTC(),
	}
	if err := d.store.CreateJob(ctx, record); err != nil {
		return nil, err
	}
	d.schedule()

	d.logger.Info("export queued",
		slog.String("job", job.ID),
		slog.String("table", job.Table),
		slog.String("format", job.Format))

	return &datatable.Deferred{
		Message:     QueuedMessage,
		DownloadURL: d.cfg.DownloadURL + "?token=" + url.QueryEscape(token),
		Filename:    key,
	}, nil
}

// Resume wakes workers for jobs left pending by a previous process.
func (d *Dispatcher) Resume() {
	for range d.cfg.Workers {
		d.schedule()
	}
}

// schedule starts a worker unless every worker is already busy. It never
// waits for a job: busy workers claim the new record once they are done.
func (d *Dispatcher) schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active >= d.cfg.Workers {
		return
	}
	d.active++
	d.wg.Add(1)
	if err := d.pool.Submit(d.work); err != nil {
		d.active--
		d.wg.Done()
		d.logger.Error("failed to start export worker", slog.String("error", err.Error()))
	}
}

// work claims and runs pending jobs until the backlog is empty. The last
// claim happens under mu so a job recorded while the worker stops is seen
// either by this worker or by the schedule call that follows it.
func (d *Dispatcher) work() {
	defer d.wg.Done()
	ctx := context.Background()
	for {
		job, err := d.store.ClaimJob(ctx)
		if err != nil {
			d.mu.Lock()
			job, err = d.store.ClaimJob(ctx)
			if err != nil {
				d.active--
				d.mu.Unlock()
				if !errors.Is(err, state.ErrJobNotFound) {
					d.logger.Error("failed to claim export job", slog.String("error", err.Error()))
				}
				return
			}
			d.mu.Unlock()
		}
		d.run(ctx, job)
	}
}

// run executes one claimed job. It owns its context: the request that
// queued the job is gone by now.
func (d *Dispatcher) run(ctx context.Context, record *state.Job) {
	start := time.Now()
	logger := d.logger.With(slog.String("job", record.ID), slog.String("table", record.Table))

	var job datatable.ExportJob
	err := json.Unmarshal(record.Request, &job)
	if err != nil {
		err = fmt.Errorf("failed to decode export job: %w", err)
	}
	rows := 0
	if err == nil {
		rows, err = d.produce(ctx, job, record.ObjectKey)
	}
	metrics.ExportJobDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("export job failed", slog.String("error", err.Error()))
		metrics.ExportJobs.WithLabelValues(record.Format, string(state.JobFailed)).Inc()
		if ferr := d.store.FailJob(ctx, record.ID, err.Error()); ferr != nil {
			logger.Error("failed to record export failure", slog.String("error", ferr.Error()))
		}
		return
	}

	metrics.ExportJobs.WithLabelValues(record.Format, string(state.JobCompleted)).Inc()
	if err := d.store.CompleteJob(ctx, record.ID, rows); err != nil {
		logger.Error("failed to mark export job completed", slog.String("error", err.Error()))
		return
	}
	logger.Info("export completed", slog.Int("rows", rows), slog.Duration("took", time.Since(start)))
}

func (d *Dispatcher) produce(ctx context.Context, job datatable.ExportJob, key string) (int, error) {
	t, err := d.tables.Get(job.Table)
	if err != nil {
		return 0, err
	}
	enc, err := d.exporter.Encoder(job.Format)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp("", "leaptable-export-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	rows, err := d.exporter.RunJob(ctx, t, job, tmp)
	if err != nil {
		return 0, err
	}
	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	if err := d.storage.Put(ctx, key, tmp, size, enc.ContentType()); err != nil {
		return 0, fmt.Errorf("failed to store export: %w", err)
	}
	return rows, nil
}

// Open resolves a download token to the stored artifact. Expired or
// unknown tokens report ErrNotFound.
func (d *Dispatcher) Open(ctx context.Context, token string) (*Object, string, error) {
	claims, err := d.signer.Verify(token)
	if err != nil {
		d.logger.Debug("rejected download token", slog.String("error", err.Error()))
		return nil, "", ErrNotFound
	}
	job, err := d.store.GetJob(ctx, claims.Subject)
	if errors.Is(err, state.ErrJobNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	switch job.Status {
	case state.JobCompleted:
	case state.JobFailed:
		return nil, "", ErrNotFound
	default:
		return nil, "", ErrNotReady
	}
	if job.ObjectKey != claims.Key {
		return nil, "", ErrNotFound
	}

	obj, err := d.storage.Open(ctx, job.ObjectKey)
	if err != nil {
		return nil, "", err
	}
	return obj, path.Base(job.ObjectKey), nil
}

// Sweep deletes artifacts and records whose links have expired.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	jobs, err := d.store.ExpiredJobs(ctx, d.now())
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, job := range jobs {
		if job.Status == state.JobRunning || job.Status == state.JobPending {
			continue
		}
		if err := d.storage.Delete(ctx, job.ObjectKey); err != nil && !errors.Is(err, ErrNotFound) {
			d.logger.Warn("failed to delete expired export", slog.String("key", job.ObjectKey), slog.String("error", err.Error()))
			continue
		}
		if err := d.store.DeleteJob(ctx, job.ID); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		d.logger.Info("removed expired exports", slog.Int("count", removed))
	}
	return removed, nil
}

// Wait blocks until every queued job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close waits for running jobs and releases the worker pool.
func (d *Dispatcher) Close() {
	d.wg.Wait()
	d.pool.Release()
}
