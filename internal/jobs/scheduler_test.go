package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeWarmer struct {
	calls  atomic.Int64
	warmed chan struct{}
}

func (f *fakeWarmer) WarmUpCache(ctx context.Context, ttl time.Duration) int {
	f.calls.Add(1)
	if f.warmed != nil {
		select {
		case f.warmed <- struct{}{}:
		default:
		}
	}
	return 3
}

type fakeSweeper struct {
	retention time.Duration
	err       error
}

func (f *fakeSweeper) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	f.retention = retention
	return 2, f.err
}

func TestSchedulerDefaults(t *testing.T) {
	s := New(nil, nil, Options{}, nil)
	if s.opts.WarmInterval != 10*time.Minute {
		t.Fatalf("expected 10m warm interval, got %s", s.opts.WarmInterval)
	}
	if s.opts.SweepSchedule != "0 3 * * *" {
		t.Fatalf("expected daily sweep, got %q", s.opts.SweepSchedule)
	}
	if s.opts.AuditRetention != 90*24*time.Hour {
		t.Fatalf("expected 90 day retention, got %s", s.opts.AuditRetention)
	}
}

func TestSchedulerWarmsOnStart(t *testing.T) {
	warmer := &fakeWarmer{warmed: make(chan struct{}, 1)}
	s := New(warmer, nil, Options{WarmInterval: time.Hour}, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(context.Background())

	select {
	case <-warmer.warmed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate warm-up on start")
	}
}

func TestSchedulerStopCompletes(t *testing.T) {
	s := New(&fakeWarmer{}, &fakeSweeper{}, Options{WarmInterval: time.Hour}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSweepAuditPassesRetention(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := New(nil, sweeper, Options{AuditRetention: 30 * 24 * time.Hour}, nil)
	s.sweepAudit()
	if sweeper.retention != 30*24*time.Hour {
		t.Fatalf("expected 30 day retention, got %s", sweeper.retention)
	}
}

func TestSweepAuditLogsErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("store down")}
	s := New(nil, sweeper, Options{}, nil)
	// Must not panic when the sweep fails.
	s.sweepAudit()
}
