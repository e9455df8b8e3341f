package supervisor

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestStatsAccumulate(t *testing.T) {
	s := newStats()
	s.AddProteinsCreated(2)
	s.AddPeptidesCreated(5)
	s.AddFatalErrors(1)
	proteins, peptides, fatal := s.Snapshot()
	if proteins != 2 || peptides != 5 || fatal != 1 {
		t.Fatalf("unexpected snapshot: %d %d %d", proteins, peptides, fatal)
	}
}

func TestSupervisorFinishIsOneShot(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	sup, err := New(context.Background(), logPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sup.Log("hello")
	sup.Finish()
	sup.Finish() // must not panic or block a second time

	select {
	case <-sup.Finished():
	default:
		t.Fatal("expected Finished channel to be closed")
	}
	select {
	case <-sup.Context().Done():
	default:
		t.Fatal("expected context to be cancelled after Finish")
	}
	sup.StopLogging()
	sup.StopLogging() // must also be idempotent
}

func TestStatisticsLoggerWritesHeaderAndRows(t *testing.T) {
	stats := newStats()
	stats.AddProteinsCreated(10)
	logger := NewStatisticsLogger(stats, 10*time.Millisecond)

	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	logger.Run(ctx, &buf)

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("seconds,proteins_created")) {
		t.Fatalf("expected CSV header, got: %s", out)
	}
}
