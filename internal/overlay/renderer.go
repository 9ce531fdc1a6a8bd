package overlay

import (
	"fmt"
	"strings"

	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/wheel"
	"go.uber.org/zap"
)

// ResultKind selects the style of the result overlay.
type ResultKind string

const (
	ResultWin   ResultKind = "win"
	ResultDrop  ResultKind = "drop"
	ResultKeep  ResultKind = "keep"
	ResultShare ResultKind = "share"
)

const dangerSeconds = 30

// Renderer draws the overlay. Implementations must not call back into the Engine.
type Renderer interface {
	DrawWheel(rotation float64, segments []wheel.Segment)
	ShowResult(text string, kind ResultKind)
	HideResult()
	SetTimer(remaining int, active bool)
	SetCurrentDonor(text string)
	SetQueueLength(n int)
	SetLedger(rows []LedgerRow)
}

// FormatTimer renders remaining seconds as m:ss.
func FormatTimer(remaining int) string {
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%d:%02d", remaining/60, remaining%60)
}

// QueueLabel is the backlog line, empty when nothing is queued.
func QueueLabel(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("Spins in queue: %d", n)
}

// LogRenderer はピクセル描画の代わりに状態変化をログに出力する
type LogRenderer struct {
	lastTimer string
}

func NewLogRenderer() *LogRenderer {
	return &LogRenderer{}
}

// DrawWheel is called every animation frame; only debug builds care.
func (r *LogRenderer) DrawWheel(rotation float64, segments []wheel.Segment) {
	logger.Debug("Wheel frame", zap.Float64("rotation", rotation), zap.Int("segments", len(segments)))
}

func (r *LogRenderer) ShowResult(text string, kind ResultKind) {
	logger.Info("Result", zap.String("kind", string(kind)), zap.String("text", strings.ReplaceAll(text, "\n", " ")))
}

func (r *LogRenderer) HideResult() {
	logger.Debug("Result hidden")
}

func (r *LogRenderer) SetTimer(remaining int, active bool) {
	label := ""
	if active {
		label = FormatTimer(remaining)
	}
	if label == r.lastTimer {
		return
	}
	r.lastTimer = label
	if !active {
		logger.Info("Timer cleared")
		return
	}
	if remaining%10 == 0 || remaining <= dangerSeconds && remaining%5 == 0 {
		logger.Info("Timer", zap.String("remaining", label), zap.Bool("danger", remaining <= dangerSeconds))
	}
}

func (r *LogRenderer) SetCurrentDonor(text string) {
	if text == "" {
		logger.Debug("Current donor cleared")
		return
	}
	logger.Info("Current donor", zap.String("text", text))
}

func (r *LogRenderer) SetQueueLength(n int) {
	logger.Info("Spin queue", zap.Int("length", n), zap.String("label", QueueLabel(n)))
}

func (r *LogRenderer) SetLedger(rows []LedgerRow) {
	if len(rows) == 0 {
		logger.Info("Donor table", zap.String("status", "Waiting for donations..."))
		return
	}
	fields := make([]zap.Field, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, zap.String(row.Name, fmt.Sprintf("round=%d total=%d", row.RoundBits, row.TotalBits)))
	}
	logger.Info("Donor table", fields...)
}
