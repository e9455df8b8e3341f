/*
Package supervisor coordinates process-wide shutdown and progress
reporting for the ingest and metadata pipelines: a cancellable
termination context tied to SIGINT/SIGTERM, one-shot completion events,
a mutex-guarded counter triple, and a single-writer log multiplexer so
concurrent workers never interleave partial lines in the log file.

Grounded on
original_source/macpepdb/tasks/database_maintenance/logger_process.py
and statistics_logger_process.py, restructured onto context.Context and
channels per spec.md §9's "thread a Supervisor handle, avoid hidden
singletons" note instead of the original's shared multiprocessing.Array.
*/
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is the mutex-guarded counter triple every pipeline reports
// through: proteins/peptides created and fatal (unrecoverable) errors.
// Each mutation is mirrored onto a matching Prometheus metric so a
// running pipeline's progress can be scraped or dumped without reading
// the CSV statistics log.
type Stats struct {
	mu              sync.Mutex
	ProteinsCreated int64
	PeptidesCreated int64
	FatalErrors     int64

	proteinsCreated prometheus.Counter
	peptidesCreated prometheus.Counter
	fatalErrors     prometheus.Counter
	queueDepth      prometheus.Gauge
}

func newStats() *Stats {
	return &Stats{
		proteinsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "macpepdb_proteins_created_total",
			Help: "Number of proteins newly inserted by the digestion pipeline.",
		}),
		peptidesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "macpepdb_peptides_created_total",
			Help: "Number of distinct peptides newly inserted by the digestion pipeline.",
		}),
		fatalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "macpepdb_fatal_errors_total",
			Help: "Number of proteins that exhausted the soft-error retry ladder.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "macpepdb_work_queue_depth",
			Help: "Number of proteins currently buffered ahead of the worker pool.",
		}),
	}
}

// AddProteinsCreated atomically increments the protein counter.
func (s *Stats) AddProteinsCreated(n int64) {
	s.mu.Lock()
	s.ProteinsCreated += n
	s.mu.Unlock()
	s.proteinsCreated.Add(float64(n))
}

// AddPeptidesCreated atomically increments the peptide counter.
func (s *Stats) AddPeptidesCreated(n int64) {
	s.mu.Lock()
	s.PeptidesCreated += n
	s.mu.Unlock()
	s.peptidesCreated.Add(float64(n))
}

// AddFatalErrors atomically increments the fatal-error counter.
func (s *Stats) AddFatalErrors(n int64) {
	s.mu.Lock()
	s.FatalErrors += n
	s.mu.Unlock()
	s.fatalErrors.Add(float64(n))
}

// SetQueueDepth reports the number of proteins currently buffered ahead
// of the worker pool.
func (s *Stats) SetQueueDepth(n int) {
	s.queueDepth.Set(float64(n))
}

// Snapshot returns a consistent copy of the counters.
func (s *Stats) Snapshot() (proteins, peptides, fatal int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ProteinsCreated, s.PeptidesCreated, s.FatalErrors
}

// Supervisor owns the termination context, the log multiplexer, and the
// shared statistics for one pipeline run (a digestion or metadata
// collection pass).
type Supervisor struct {
	ctx      context.Context
	cancel   context.CancelFunc
	Stats    *Stats
	registry *prometheus.Registry
	logger   *slog.Logger
	logLines chan string
	logFile  *os.File

	finishOnce sync.Once
	finished   chan struct{}
	stopOnce   sync.Once
	stopped    chan struct{}
	logWG      sync.WaitGroup
}

// New creates a Supervisor whose context is cancelled automatically on
// SIGINT/SIGTERM, and whose log lines are written to logPath by a single
// dedicated goroutine (the "log multiplexer").
func New(parent context.Context, logPath string) (*Supervisor, error) {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)

	var (
		file *os.File
		err  error
	)
	if logPath != "" {
		file, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("supervisor: open log file: %w", err)
		}
	}

	stats := newStats()
	registry := prometheus.NewRegistry()
	registry.MustRegister(stats.proteinsCreated, stats.peptidesCreated, stats.fatalErrors, stats.queueDepth)

	s := &Supervisor{
		ctx:      ctx,
		cancel:   cancel,
		Stats:    stats,
		registry: registry,
		logLines: make(chan string, 256),
		logFile:  file,
		finished: make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	var handler slog.Handler
	if file != nil {
		handler = slog.NewTextHandler(file, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	s.logger = slog.New(handler)

	s.logWG.Add(1)
	go s.drainLog()

	return s, nil
}

// drainLog is the single writer goroutine every worker's log lines pass
// through, preventing interleaved partial writes from concurrent
// goroutines (the teacher's bio.ParseToChannel select-on-ctx-or-send
// idiom, generalized to a fan-in log sink).
func (s *Supervisor) drainLog() {
	defer s.logWG.Done()
	for {
		select {
		case line, ok := <-s.logLines:
			if !ok {
				return
			}
			s.logger.Info(line)
		case <-s.stopped:
			// Drain whatever remains buffered before exiting.
			for {
				select {
				case line := <-s.logLines:
					s.logger.Info(line)
				default:
					return
				}
			}
		}
	}
}

// Context returns the termination context: cancelled on SIGINT/SIGTERM
// or when Finish is called.
func (s *Supervisor) Context() context.Context {
	return s.ctx
}

// Registry returns the Prometheus registry Stats reports through, for
// callers that want to scrape or dump it.
func (s *Supervisor) Registry() *prometheus.Registry {
	return s.registry
}

// Log queues a line for the single-writer log goroutine. Safe to call
// from any number of worker goroutines concurrently.
func (s *Supervisor) Log(line string) {
	select {
	case s.logLines <- line:
	case <-s.ctx.Done():
	}
}

// Logf is a convenience wrapper around Log with fmt.Sprintf formatting.
func (s *Supervisor) Logf(format string, args ...interface{}) {
	s.Log(fmt.Sprintf(format, args...))
}

// Finish cancels the termination context exactly once, signaling every
// worker to stop accepting new work and drain in-flight items.
func (s *Supervisor) Finish() {
	s.finishOnce.Do(func() {
		close(s.finished)
		s.cancel()
	})
}

// Finished returns a channel closed exactly once, when Finish is called.
func (s *Supervisor) Finished() <-chan struct{} {
	return s.finished
}

// StopLogging stops the log multiplexer after draining any buffered
// lines, and closes the underlying file if one was opened. Call after
// every worker has exited.
func (s *Supervisor) StopLogging() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.logWG.Wait()
		if s.logFile != nil {
			s.logFile.Close()
		}
	})
}

// StatisticsLogger periodically appends a CSV row of
// (seconds_since_start, proteins_created, peptides_created,
// fatal_errors, protein_rate, peptide_rate) to w, until ctx is done.
// Grounded on
// original_source/macpepdb/tasks/database_maintenance/statistics_logger_process.py's
// header row and per-tick rate computation.
type StatisticsLogger struct {
	stats       *Stats
	writePeriod time.Duration
}

// NewStatisticsLogger returns a StatisticsLogger sampling stats every
// writePeriod.
func NewStatisticsLogger(stats *Stats, writePeriod time.Duration) *StatisticsLogger {
	return &StatisticsLogger{stats: stats, writePeriod: writePeriod}
}

// Run writes the CSV header, then one row every writePeriod until ctx is
// cancelled, reporting both cumulative counts and the rate of change
// since the previous row.
func (l *StatisticsLogger) Run(ctx context.Context, w writer) {
	fmt.Fprintln(w, "seconds,proteins_created,peptides_created,fatal_errors,protein_rate,peptide_rate")
	start := time.Now()
	ticker := time.NewTicker(l.writePeriod)
	defer ticker.Stop()

	var lastProteins, lastPeptides int64
	lastTick := start

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			proteins, peptides, fatal := l.stats.Snapshot()
			elapsed := tick.Sub(lastTick).Seconds()
			var proteinRate, peptideRate float64
			if elapsed > 0 {
				proteinRate = float64(proteins-lastProteins) / elapsed
				peptideRate = float64(peptides-lastPeptides) / elapsed
			}
			fmt.Fprintf(w, "%.0f,%d,%d,%d,%.2f,%.2f\n",
				tick.Sub(start).Seconds(), proteins, peptides, fatal, proteinRate, peptideRate)
			lastProteins, lastPeptides, lastTick = proteins, peptides, tick
		}
	}
}

// writer is the minimal io.Writer-shaped dependency StatisticsLogger
// needs, kept local to avoid importing io solely for this alias.
type writer interface {
	Write(p []byte) (n int, err error)
}
