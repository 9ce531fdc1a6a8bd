package overlay

import (
	"math/rand"
	"time"

	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/spin"
	"github.com/ichi0g0y/bits-wheel/internal/wheel"
	"go.uber.org/zap"
)

// RoundState はラウンドの状態
type RoundState int

const (
	RoundInactive RoundState = iota
	RoundActive
	// RoundEndingDeferred means the timer expired while a spin was in flight.
	RoundEndingDeferred
)

func (s RoundState) String() string {
	switch s {
	case RoundActive:
		return "active"
	case RoundEndingDeferred:
		return "ending_deferred"
	default:
		return "inactive"
	}
}

// EndReason is why a round ended.
type EndReason int

const (
	EndTimeout EndReason = iota
	EndDrop
)

const (
	winText  = "TIME'S UP!\nYOU WIN! Keep it!"
	dropText = "ROUND OVER\nDROP IT!"
)

// Reporter receives the label of every resolved spin.
type Reporter interface {
	ReportSpinComplete(result string)
}

// drawRandom はテストで差し替え可能な一様乱数 [0,1)
var drawRandom = rand.Float64

// Engine はラウンド・キュー・ホイールの状態機械。
// すべてのメソッドはSchedulerのループ上から呼ぶこと。
type Engine struct {
	cfg      Config
	wheel    *wheel.Wheel
	sched    *Scheduler
	render   Renderer
	store    Store
	reporter Reporter

	state       RoundState
	remaining   int
	countdown   *Task
	resultShown bool

	queue    []spin.Request
	spinning bool
	rotation float64
	ledger   *Ledger

	currentDonor string
	bannerClear  *Task
	resultHide   *Task
}

func NewEngine(cfg Config, w *wheel.Wheel, sched *Scheduler, render Renderer, store Store, reporter Reporter) *Engine {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Engine{
		cfg:      cfg,
		wheel:    w,
		sched:    sched,
		render:   render,
		store:    store,
		reporter: reporter,
		ledger:   NewLedger(nil),
	}
}

// Restore loads donor totals and the pending queue from the store and draws the initial frame.
// A restored queue is shown but not spun until the next donation or manual start.
func (e *Engine) Restore() {
	if totals, err := e.store.LoadDonorTotals(); err != nil {
		logger.Debug("Failed to load donor totals", zap.Error(err))
	} else {
		e.ledger = NewLedger(totals)
	}

	if queue, err := e.store.LoadQueue(); err != nil {
		logger.Debug("Failed to load spin queue", zap.Error(err))
	} else {
		e.queue = queue
	}

	logger.Info("Overlay state restored",
		zap.Int("donors", len(e.ledger.Totals())),
		zap.Int("queued_spins", len(e.queue)))

	e.render.DrawWheel(e.rotation, e.wheel.Segments())
	e.render.SetTimer(0, false)
	e.render.SetQueueLength(len(e.queue))
	e.render.SetLedger(e.ledger.Rows())
}

// Dispatch routes a decoded channel event.
func (e *Engine) Dispatch(t spin.EventType, payload interface{}) {
	switch t {
	case spin.EventNewSpin:
		req, ok := payload.(spin.Request)
		if !ok {
			logger.Warn("newSpin payload has unexpected type")
			return
		}
		e.HandleNewSpin(req)
	case spin.EventStartRound:
		e.HandleStartRound()
	case spin.EventConnected:
		if c, ok := payload.(spin.Connected); ok {
			logger.Info("Connected to relay", zap.String("clientId", c.ClientID))
		}
	default:
		logger.Debug("Ignoring event", zap.String("type", string(t)))
	}
}

// HandleNewSpin queues one entry per spin and starts spinning when idle.
func (e *Engine) HandleNewSpin(req spin.Request) {
	if err := req.Validate(); err != nil {
		logger.Warn("Rejected newSpin", zap.Error(err))
		return
	}

	logger.Info("New spin received",
		zap.String("donor", req.Donor),
		zap.Int("bits", req.Bits),
		zap.Int("spins", req.Spins))

	if req.Spins == 0 {
		e.recordDonation(req)
		return
	}

	for i := 0; i < req.Spins; i++ {
		e.queue = append(e.queue, req)
	}
	e.setBanner(req.Banner())

	if !e.spinning && e.state == RoundInactive {
		e.StartRound()
	}
	e.recordDonation(req)
	e.saveQueue()

	if !e.spinning {
		e.popAndSpin()
	}
}

// HandleStartRound is the manual trigger.
func (e *Engine) HandleStartRound() {
	if e.state != RoundInactive || e.spinning {
		logger.Info("Start round ignored", zap.Stringer("state", e.state), zap.Bool("spinning", e.spinning))
		return
	}
	if len(e.queue) == 0 {
		logger.Info("Start round ignored: spin queue is empty")
		return
	}
	e.StartRound()
	e.popAndSpin()
}

// StartRound resets round totals and restarts the countdown.
func (e *Engine) StartRound() {
	e.ledger.ResetRound()
	e.remaining = e.cfg.RoundSeconds()
	e.countdown.Cancel()
	e.countdown = e.sched.Every(time.Second, e.tick)
	e.state = RoundActive
	e.resultShown = false

	e.resultHide.Cancel()
	e.render.HideResult()
	e.render.SetTimer(e.remaining, true)
	e.render.SetLedger(e.ledger.Rows())

	logger.Info("Round started", zap.Int("seconds", e.remaining))
}

func (e *Engine) tick() {
	e.remaining--
	if e.remaining < 0 {
		e.remaining = 0
	}
	e.render.SetTimer(e.remaining, true)
	if e.remaining <= 0 {
		e.EndRound(EndTimeout)
	}
}

// EndRound stops the countdown. A timeout during a spin is deferred until the spin resolves.
func (e *Engine) EndRound(reason EndReason) {
	e.countdown.Cancel()
	e.countdown = nil

	if e.resultShown {
		e.state = RoundInactive
		return
	}
	if reason == EndTimeout && e.spinning {
		e.state = RoundEndingDeferred
		logger.Info("Round timer expired during spin, result deferred")
		return
	}

	e.state = RoundInactive
	e.showRoundResult(reason)
}

func (e *Engine) showRoundResult(reason EndReason) {
	e.resultShown = true
	e.render.SetTimer(0, false)

	text, kind := winText, ResultWin
	if reason == EndDrop {
		text, kind = dropText, ResultDrop
	}
	logger.Info("Round over", zap.String("result", string(kind)))
	e.showOverlay(text, kind, e.cfg.ResultDuration)

	e.bannerClear.Cancel()
	e.bannerClear = e.sched.Schedule(e.cfg.ResultDuration, func() {
		e.setBanner("")
	})
}

func (e *Engine) showOverlay(text string, kind ResultKind, d time.Duration) {
	e.render.ShowResult(text, kind)
	e.resultHide.Cancel()
	e.resultHide = e.sched.Schedule(d, e.render.HideResult)
}

func (e *Engine) popAndSpin() {
	if len(e.queue) == 0 {
		return
	}
	req := e.queue[0]
	e.queue = e.queue[1:]
	e.saveQueue()
	logger.Debug("Spinning", zap.String("donor", req.Donor), zap.Int("remaining_in_queue", len(e.queue)))
	e.spinWheel()
}

func (e *Engine) spinWheel() {
	e.spinning = true
	anim := wheel.Animation{
		Start:    e.rotation,
		Total:    wheel.TotalRotation(drawRandom()),
		Duration: e.cfg.SpinDuration,
	}
	start := e.sched.Now()

	var frame func()
	frame = func() {
		elapsed := e.sched.Now().Sub(start)
		if anim.Done(elapsed) {
			e.rotation = wheel.Normalize(anim.Final())
			e.render.DrawWheel(e.rotation, e.wheel.Segments())
			e.resolveSpin(e.wheel.SegmentAt(e.rotation))
			return
		}
		e.render.DrawWheel(anim.RotationAt(elapsed), e.wheel.Segments())

		next := e.cfg.FrameInterval
		if left := anim.Duration - elapsed; left < next {
			next = left
		}
		e.sched.Schedule(next, frame)
	}
	e.sched.Schedule(0, frame)
}

func (e *Engine) resolveSpin(seg wheel.Segment) {
	e.spinning = false
	logger.Info("Spin result", zap.String("result", seg.Label))
	if e.reporter != nil {
		e.reporter.ReportSpinComplete(seg.Label)
	}

	if seg.Outcome.IsTerminal() {
		e.EndRound(EndDrop)
		return
	}

	if e.state == RoundEndingDeferred {
		e.state = RoundInactive
		if !e.resultShown {
			e.showRoundResult(EndTimeout)
		}
		return
	}

	kind := ResultShare
	if seg.Outcome == wheel.KeepChar {
		kind = ResultKeep
	}
	e.showOverlay(seg.Label, kind, e.cfg.KeepResultDuration)

	e.sched.Schedule(e.cfg.NextSpinDelay, func() {
		if e.spinning {
			return
		}
		if e.state == RoundActive && len(e.queue) > 0 {
			e.popAndSpin()
			return
		}
		e.setBanner("")
	})
}

func (e *Engine) recordDonation(req spin.Request) {
	e.ledger.Add(req.Donor, req.Bits)
	if err := e.store.SaveDonorTotals(e.ledger.Totals()); err != nil {
		logger.Debug("Failed to save donor totals", zap.Error(err))
	}
	e.render.SetLedger(e.ledger.Rows())
}

func (e *Engine) saveQueue() {
	if err := e.store.SaveQueue(e.queue); err != nil {
		logger.Debug("Failed to save spin queue", zap.Error(err))
	}
	e.render.SetQueueLength(len(e.queue))
}

func (e *Engine) setBanner(text string) {
	e.bannerClear.Cancel()
	e.bannerClear = nil
	e.currentDonor = text
	e.render.SetCurrentDonor(text)
}

func (e *Engine) State() RoundState { return e.state }

func (e *Engine) Remaining() int { return e.remaining }

func (e *Engine) QueueLen() int { return len(e.queue) }

func (e *Engine) Spinning() bool { return e.spinning }

func (e *Engine) Rotation() float64 { return e.rotation }

func (e *Engine) CurrentDonor() string { return e.currentDonor }

func (e *Engine) Ledger() *Ledger { return e.ledger }
