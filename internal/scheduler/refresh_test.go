package scheduler

import (
	"sync"
	"testing"

	"github.com/quantfolio/pulse/pkg/logger"
)

type blockingPipeline struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	runs    int
}

func (p *blockingPipeline) RunAll() error {
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()

	if p.started != nil {
		close(p.started)
		p.started = nil
	}
	if p.release != nil {
		<-p.release
	}
	return nil
}

func TestRefreshJobRuns(t *testing.T) {
	p := &blockingPipeline{}
	job := NewRefreshJob(p, logger.New(logger.Config{Level: "error"}))

	if job.Name() != "etl_refresh" {
		t.Errorf("Name() = %q", job.Name())
	}
	if err := job.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.runs != 1 {
		t.Errorf("runs = %d, want 1", p.runs)
	}
}

func TestRefreshJobSkipsOverlappingRun(t *testing.T) {
	p := &blockingPipeline{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	job := NewRefreshJob(p, logger.New(logger.Config{Level: "error"}))

	done := make(chan error, 1)
	go func() { done <- job.Run() }()
	<-p.started

	// Second invocation while the first is still inside RunAll.
	if err := job.Run(); err != nil {
		t.Fatalf("overlapping Run: %v", err)
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runs != 1 {
		t.Errorf("runs = %d, want the overlapping run skipped", p.runs)
	}
}
