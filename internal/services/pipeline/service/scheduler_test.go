package service

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "linkshell/internal/platform/errors"
	dom "linkshell/internal/services/pipeline/domain"
)

func req(id int64, p dom.Priority) dom.Request {
	return dom.Request{MessageID: id, Priority: p}
}

func mustNext(t *testing.T, s *Scheduler) dom.Request {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return r
}

func TestScheduler_PriorityThenArrival(t *testing.T) {
	s := NewScheduler(0, 1, 10)
	in := []dom.Request{
		req(1, dom.PriorityLow),
		req(2, dom.PriorityHigh),
		req(3, dom.PriorityNormal),
		req(4, dom.PriorityHigh),
	}
	for _, r := range in {
		if err := s.Offer(r); err != nil {
			t.Fatalf("Offer: %v", err)
		}
	}
	d := s.Depth()
	if d[dom.PriorityHigh] != 2 || d[dom.PriorityNormal] != 1 || d[dom.PriorityLow] != 1 {
		t.Fatalf("Depth = %v", d)
	}
	want := []int64{2, 4, 3, 1}
	for i, id := range want {
		if got := mustNext(t, s).MessageID; got != id {
			t.Fatalf("dispatch %d = message %d, want %d", i, got, id)
		}
	}
	if s.Len() != 0 || s.Depth()[dom.PriorityHigh] != 0 {
		t.Fatalf("queue not empty")
	}
}

func TestScheduler_RetryJoinsTailOfTier(t *testing.T) {
	s := NewScheduler(0, 1, 10)
	_ = s.Offer(req(1, dom.PriorityHigh))
	_ = s.Offer(req(2, dom.PriorityHigh))

	first := mustNext(t, s)
	if err := s.Offer(first.Next()); err != nil {
		t.Fatalf("retry offer: %v", err)
	}
	if got := mustNext(t, s).MessageID; got != 2 {
		t.Fatalf("retry jumped the queue, got message %d", got)
	}
	if got := mustNext(t, s); got.MessageID != 1 || got.RetryCount != 1 {
		t.Fatalf("retry = %+v", got)
	}
}

func TestScheduler_AdmissionBound(t *testing.T) {
	s := NewScheduler(0, 1, 2)
	_ = s.Offer(req(1, dom.PriorityLow))
	_ = s.Offer(req(2, dom.PriorityLow))
	err := s.Offer(req(3, dom.PriorityHigh))
	if !errors.Is(err, ErrBacklogFull) || !perr.IsCode(err, perr.ErrorCodeTooManyRequests) {
		t.Fatalf("third offer err = %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("rejected request was queued")
	}

	drained := s.Close()
	if len(drained) != 2 || s.Len() != 0 {
		t.Fatalf("Close drained %d, left %d", len(drained), s.Len())
	}
	if err := s.Offer(req(4, dom.PriorityLow)); !errors.Is(err, ErrClosed) {
		t.Fatalf("offer after close err = %v", err)
	}
}

func TestScheduler_NextHonoursContext(t *testing.T) {
	s := NewScheduler(5, 1, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("empty Next err = %v", err)
	}
}

func TestScheduler_NextSpendsNoToken(t *testing.T) {
	s := NewScheduler(1, 1, 10)
	for i := 0; i < 5; i++ {
		_ = s.Offer(req(int64(i), dom.PriorityLow))
	}
	start := time.Now()
	for i := 0; i < 5; i++ {
		mustNext(t, s)
	}
	if d := time.Since(start); d > 200*time.Millisecond {
		t.Fatalf("popping 5 requests took %s at 1 tps", d)
	}

	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); err == nil {
		t.Fatalf("second token released within 50ms at 1 tps")
	}
}

func TestScheduler_NextStopsOnEndedContext(t *testing.T) {
	s := NewScheduler(0, 1, 10)
	_ = s.Offer(req(1, dom.PriorityHigh))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Next err = %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("request popped after ctx ended")
	}
}

func TestScheduler_WakesWaitingWorker(t *testing.T) {
	s := NewScheduler(0, 1, 10)
	got := make(chan int64, 1)
	go func() {
		r, err := s.Next(context.Background())
		if err == nil {
			got <- r.MessageID
		}
	}()
	time.Sleep(10 * time.Millisecond)
	_ = s.Offer(req(9, dom.PriorityLow))
	select {
	case id := <-got:
		if id != 9 {
			t.Fatalf("got %d", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiting worker not woken")
	}
}

func TestScheduler_RateBound(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	const tps = 20
	s := NewScheduler(tps, 1, 100)
	for i := 0; i < 30; i++ {
		_ = s.Offer(req(int64(i), dom.PriorityHigh))
	}
	times := make([]time.Time, 0, 30)
	for i := 0; i < 30; i++ {
		mustNext(t, s)
		if err := s.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		times = append(times, time.Now())
	}
	// tps+1 consecutive releases must span a full second; the slack absorbs timer jitter
	for i := 0; i+tps < len(times); i++ {
		if d := times[i+tps].Sub(times[i]); d < time.Second-15*time.Millisecond {
			t.Fatalf("%d releases within %s", tps+1, d)
		}
	}
}
