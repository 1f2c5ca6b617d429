package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"

	"github.com/frahmantamala/expense-tickets/internal/metrics"
)

var (
	ErrInvalidPath = errors.New("attachment path escapes the upload directory")
	ErrClosed      = errors.New("media cleaner is shut down")
)

type Job struct {
	Path string
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "path", job.Path)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	Workers        int
	QueueSize      int
	MaxRetries     uint64
	RetryBaseDelay time.Duration
}

// Cleaner deletes ticket attachments from the upload directory on a pool of
// background workers. Attachment paths are relative to the upload directory.
type Cleaner struct {
	fs         afero.Fs
	maxRetries uint64
	baseDelay  time.Duration
	logger     *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int

	// ctx stops idle workers; jobCtx aborts in-flight removals.
	ctx       context.Context
	cancel    context.CancelFunc
	jobCtx    context.Context
	jobCancel context.CancelFunc
	wg        sync.WaitGroup
	once      sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewCleaner starts the worker pool. fs is confined to its root; pass an
// afero.NewBasePathFs over the upload directory.
func NewCleaner(fs afero.Fs, cfg Config, logger *slog.Logger) *Cleaner {
	ctx, cancel := context.WithCancel(context.Background())
	jobCtx, jobCancel := context.WithCancel(context.Background())

	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}

	c := &Cleaner{
		fs:         fs,
		maxRetries: cfg.MaxRetries,
		baseDelay:  baseDelay,
		logger:     logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
		jobCtx:     jobCtx,
		jobCancel:  jobCancel,
	}

	c.startWorkerPool()
	return c
}

func (c *Cleaner) startWorkerPool() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.process)
		}

		c.wg.Add(1)
		go c.dispatch()

		c.logger.Info("media cleanup worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

// dispatch hands queued jobs to idle workers. Once the queue is closed and
// drained it stops the workers.
func (c *Cleaner) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case job, ok := <-c.jobQueue:
			if !ok {
				c.cancel()
				return
			}
			metrics.MediaQueueDepth.Set(float64(len(c.jobQueue)))

			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- job:
				case <-c.ctx.Done():
					return
				}
			case <-c.ctx.Done():
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Release queues path for removal and returns immediately. When the queue is
// full or the cleaner is shut down the job is dropped and counted.
func (c *Cleaner) Release(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		c.logger.Warn("media cleaner closed, dropping job", "path", path)
		metrics.MediaCleanupTotal.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case c.jobQueue <- Job{Path: path}:
		metrics.MediaQueueDepth.Set(float64(len(c.jobQueue)))
	default:
		c.logger.Warn("media cleanup queue full, dropping job",
			"path", path,
			"queue_capacity", cap(c.jobQueue))
		metrics.MediaCleanupTotal.WithLabelValues("dropped").Inc()
	}
}

func (c *Cleaner) process(job Job) {
	if err := c.Remove(c.jobCtx, job.Path); err != nil {
		c.logger.Error("failed to remove attachment", "path", job.Path, "error", err)
	}
}

// Remove deletes path, retrying transient failures with exponential backoff.
// A file that is already gone counts as removed.
func (c *Cleaner) Remove(ctx context.Context, path string) error {
	name, err := cleanPath(path)
	if err != nil {
		metrics.MediaCleanupTotal.WithLabelValues("failed").Inc()
		return err
	}

	missing := false
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		rmErr := c.fs.Remove(name)
		switch {
		case rmErr == nil:
			return nil
		case errors.Is(rmErr, os.ErrNotExist):
			missing = true
			return nil
		default:
			c.logger.Debug("attachment removal failed, retrying", "path", name, "error", rmErr)
			return retry.RetryableError(rmErr)
		}
	})
	if err != nil {
		metrics.MediaCleanupTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("remove %s: %w", name, err)
	}

	if missing {
		metrics.MediaCleanupTotal.WithLabelValues("missing").Inc()
		c.logger.Debug("attachment already gone", "path", name)
		return nil
	}
	metrics.MediaCleanupTotal.WithLabelValues("removed").Inc()
	c.logger.Info("attachment removed", "path", name)
	return nil
}

// Unreferenced walks fs and returns every file that is not in referenced,
// in the rooted form Remove accepts.
func Unreferenced(ctx context.Context, fs afero.Fs, referenced []string) ([]string, error) {
	keep := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		if name, err := cleanPath(p); err == nil {
			keep[name] = struct{}{}
		}
	}

	var orphans []string
	err := afero.Walk(fs, string(filepath.Separator), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			return nil
		}
		name, cerr := cleanPath(path)
		if cerr != nil {
			return nil
		}
		if _, ok := keep[name]; !ok {
			orphans = append(orphans, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk upload directory: %w", err)
	}
	return orphans, nil
}

// Sweep queues every file under the root that is not in referenced and
// returns how many were queued. Unlike Release it waits for queue space.
func (c *Cleaner) Sweep(ctx context.Context, referenced []string) (int, error) {
	orphans, err := Unreferenced(ctx, c.fs, referenced)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, name := range orphans {
		if err := c.enqueue(ctx, name); err != nil {
			return queued, err
		}
		queued++
	}

	c.logger.Info("media sweep finished", "referenced", len(referenced), "queued", queued)
	return queued, nil
}

func (c *Cleaner) enqueue(ctx context.Context, path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}
	select {
	case c.jobQueue <- Job{Path: path}:
		metrics.MediaQueueDepth.Set(float64(len(c.jobQueue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the queue to drain. If ctx ends
// first, in-flight removals are aborted and the remaining jobs discarded.
func (c *Cleaner) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.jobQueue)
	}
	c.mu.Unlock()

	c.logger.Info("shutting down media cleaner")

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.jobCancel()
		c.logger.Info("media cleaner shutdown complete")
		return nil
	case <-ctx.Done():
		c.cancel()
		c.jobCancel()
		<-done
		return ctx.Err()
	}
}

// cleanPath turns a stored attachment reference, relative to the upload root,
// into the rooted form the filesystem uses.
func cleanPath(p string) (string, error) {
	p = strings.TrimLeft(filepath.ToSlash(strings.TrimSpace(p)), "/")
	if p == "" {
		return "", ErrInvalidPath
	}

	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return string(filepath.Separator) + clean, nil
}
