package overlay

import (
	"container/heap"
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Task is a handle to a scheduled callback. Cancel must be called from the loop goroutine.
type Task struct {
	s         *Scheduler
	due       time.Time
	interval  time.Duration
	fn        func()
	seq       uint64
	index     int
	cancelled bool
}

// Cancel prevents any future run of the task. Safe on a nil or already-fired task.
func (t *Task) Cancel() {
	if t == nil || t.cancelled {
		return
	}
	t.cancelled = true
	if t.index >= 0 {
		heap.Remove(&t.s.queue, t.index)
	}
}

// Pending reports whether the task is still waiting to run.
func (t *Task) Pending() bool {
	return t != nil && !t.cancelled && t.index >= 0
}

// Scheduler はオーバーレイの単一スレッドイベントループ。
// すべての状態変更はこのループ上のタスクとして実行される。
type Scheduler struct {
	clock clockwork.Clock
	queue taskQueue
	seq   uint64
	inbox chan func()
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock: clock,
		inbox: make(chan func(), 64),
	}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Schedule runs fn once after delay.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) *Task {
	return s.push(delay, 0, fn)
}

// Every runs fn every interval, first after one interval, until cancelled.
func (s *Scheduler) Every(interval time.Duration, fn func()) *Task {
	if interval <= 0 {
		panic("overlay: Every requires a positive interval")
	}
	return s.push(interval, interval, fn)
}

func (s *Scheduler) push(delay, interval time.Duration, fn func()) *Task {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	t := &Task{
		s:        s,
		due:      s.clock.Now().Add(delay),
		interval: interval,
		fn:       fn,
		seq:      s.seq,
		index:    -1,
	}
	heap.Push(&s.queue, t)
	return t
}

// Post hands fn to the loop goroutine. It is the only method safe to call from other goroutines.
func (s *Scheduler) Post(ctx context.Context, fn func()) error {
	select {
	case s.inbox <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextDue returns the due time of the earliest pending task.
func (s *Scheduler) NextDue() (time.Time, bool) {
	if len(s.queue) == 0 {
		return time.Time{}, false
	}
	return s.queue[0].due, true
}

// Len is the number of pending tasks.
func (s *Scheduler) Len() int {
	return len(s.queue)
}

// RunDue runs every task whose due time is not after Now, including tasks
// those callbacks schedule for the same instant. It returns the number run.
func (s *Scheduler) RunDue() int {
	now := s.clock.Now()
	n := 0
	for len(s.queue) > 0 && !s.queue[0].due.After(now) {
		t := heap.Pop(&s.queue).(*Task)
		if t.cancelled {
			continue
		}
		t.fn()
		n++
		if t.interval > 0 && !t.cancelled {
			s.seq++
			t.seq = s.seq
			t.due = t.due.Add(t.interval)
			heap.Push(&s.queue, t)
		}
	}
	return n
}

// Run drives the loop until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.RunDue()

		wait := time.Hour
		if next, ok := s.NextDue(); ok {
			wait = next.Sub(s.clock.Now())
			if wait < 0 {
				wait = 0
			}
		}

		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case fn := <-s.inbox:
			timer.Stop()
			fn()
		case <-timer.Chan():
		}
	}
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
