package overlay

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// advance moves the fake clock forward by d, running every task that falls due on the way.
func advance(fc *clockwork.FakeClock, s *Scheduler, d time.Duration) {
	target := fc.Now().Add(d)
	for {
		s.RunDue()
		next, ok := s.NextDue()
		if !ok || next.After(target) {
			break
		}
		fc.Advance(next.Sub(fc.Now()))
	}
	fc.Advance(target.Sub(fc.Now()))
	s.RunDue()
}

func TestScheduler_RunsInDueOrder(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	s := NewScheduler(fc)

	var got []string
	s.Schedule(30*time.Millisecond, func() { got = append(got, "c") })
	s.Schedule(10*time.Millisecond, func() { got = append(got, "a") })
	s.Schedule(10*time.Millisecond, func() { got = append(got, "b") })

	advance(fc, s, 20*time.Millisecond)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("after 20ms: got=%v want=[a b]", got)
	}

	advance(fc, s, 10*time.Millisecond)
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("after 30ms: got=%v", got)
	}
	if s.Len() != 0 {
		t.Fatalf("queue should be empty: got=%d", s.Len())
	}
}

func TestScheduler_CancelBeforeDue(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	s := NewScheduler(fc)

	ran := false
	task := s.Schedule(time.Second, func() { ran = true })
	if !task.Pending() {
		t.Fatalf("task should be pending")
	}
	task.Cancel()
	task.Cancel()

	advance(fc, s, 2*time.Second)
	if ran {
		t.Fatalf("cancelled task ran")
	}
	if task.Pending() {
		t.Fatalf("cancelled task still pending")
	}

	var nilTask *Task
	nilTask.Cancel()
}

func TestScheduler_EveryRepeatsUntilCancelled(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	s := NewScheduler(fc)

	count := 0
	var task *Task
	task = s.Every(time.Second, func() {
		count++
		if count == 3 {
			task.Cancel()
		}
	})

	advance(fc, s, 2500*time.Millisecond)
	if count != 2 {
		t.Fatalf("ticks after 2.5s: got=%d want=%d", count, 2)
	}

	advance(fc, s, 10*time.Second)
	if count != 3 {
		t.Fatalf("ticks after cancel: got=%d want=%d", count, 3)
	}
}

func TestScheduler_ZeroDelayScheduledFromTaskRunsSameTurn(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	s := NewScheduler(fc)

	var got []int
	s.Schedule(0, func() {
		got = append(got, 1)
		s.Schedule(0, func() { got = append(got, 2) })
	})

	if n := s.RunDue(); n != 2 {
		t.Fatalf("RunDue: got=%d want=%d", n, 2)
	}
	if len(got) != 2 {
		t.Fatalf("got=%v", got)
	}
}

func TestScheduler_RunExecutesPostedAndTimedTasks(t *testing.T) {
	s := NewScheduler(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	if err := s.Post(ctx, func() {
		s.Schedule(10*time.Millisecond, func() { close(done) })
	}); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("timed task did not run")
	}

	cancel()
	if err := <-errCh; err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}
