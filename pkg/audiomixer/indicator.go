package audiomixer

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// AnchorMode selects which configured offset is applied to the indicator position
type AnchorMode int

const (
	AnchorCursor AnchorMode = iota
	AnchorWindow
)

func (m AnchorMode) String() string {
	if m == AnchorWindow {
		return "window"
	}

	return "cursor"
}

// IndicatorRenderer receives display commands from the event handler. Every command
// is queued and runs later, in posting order, on the indicator's own loop
type IndicatorRenderer interface {
	QueueShow(x, y int, mode AnchorMode)
	QueueMove(x, y int, mode AnchorMode)
	QueueUpdate(volume float32)
	QueueSetMute(muted bool)
	QueueHide()
	QueueClose()
}

// canvas is the drawing surface behind the indicator, positions are already offset
type canvas interface {
	Show(x, y int)
	Move(x, y int)
	Draw(percentage int, muted bool)
	Hide()
	Close()
}

type IndicatorConfig struct {
	Size  int    `mapstructure:"indicatorSize"`
	Color string `mapstructure:"indicatorColor"`

	CursorOffsetX int `mapstructure:"indicatorXCursorOffset"`
	CursorOffsetY int `mapstructure:"indicatorYCursorOffset"`
	WindowOffsetX int `mapstructure:"indicatorXWindowOffset"`
	WindowOffsetY int `mapstructure:"indicatorYWindowOffset"`
}

// indicator owns everything drawn on screen. Its state is only touched from Run
type indicator struct {
	logger   *zap.SugaredLogger
	config   IndicatorConfig
	canvas   canvas
	commands *fifo[func() bool]

	visible    bool
	percentage int
	muted      bool
}

func newIndicator(logger *zap.SugaredLogger, config IndicatorConfig, c canvas) *indicator {
	logger = logger.Named("indicator")

	if c == nil {
		c = newLogCanvas(logger, config)
	}

	ind := &indicator{
		logger:   logger,
		config:   config,
		canvas:   c,
		commands: newFifo[func() bool](),
	}

	logger.Debugw("Created indicator instance", "size", config.Size, "color", config.Color)

	return ind
}

// Run executes queued commands until a close command is processed
func (ind *indicator) Run() {
	ind.logger.Debug("Indicator loop starting")

	for {
		if done := ind.commands.Pop()(); done {
			ind.logger.Debug("Indicator loop closed")
			return
		}
	}
}

func (ind *indicator) post(command func()) {
	ind.commands.Push(func() bool {
		command()
		return false
	})
}

func (ind *indicator) QueueShow(x, y int, mode AnchorMode) {
	ind.post(func() {
		ind.visible = true
		ind.canvas.Show(ind.offset(x, y, mode))
		ind.canvas.Draw(ind.percentage, ind.muted)
	})
}

func (ind *indicator) QueueMove(x, y int, mode AnchorMode) {
	ind.post(func() {
		ind.canvas.Move(ind.offset(x, y, mode))
	})
}

func (ind *indicator) QueueUpdate(volume float32) {
	ind.post(func() {
		ind.percentage = int(math.Round(float64(volume) * 100))
		ind.redraw()
	})
}

func (ind *indicator) QueueSetMute(muted bool) {
	ind.post(func() {
		ind.muted = muted
		ind.redraw()
	})
}

func (ind *indicator) QueueHide() {
	ind.post(func() {
		ind.visible = false
		ind.canvas.Hide()
	})
}

func (ind *indicator) QueueClose() {
	ind.commands.Push(func() bool {
		ind.visible = false
		ind.canvas.Close()
		return true
	})
}

func (ind *indicator) redraw() {
	if !ind.visible {
		return
	}

	ind.canvas.Draw(ind.percentage, ind.muted)
}

func (ind *indicator) offset(x, y int, mode AnchorMode) (int, int) {
	if mode == AnchorWindow {
		return x + ind.config.WindowOffsetX, y + ind.config.WindowOffsetY
	}

	return x + ind.config.CursorOffsetX, y + ind.config.CursorOffsetY
}

// logCanvas stands in for an on-screen overlay and reports what would be drawn
type logCanvas struct {
	logger *zap.SugaredLogger
}

func newLogCanvas(logger *zap.SugaredLogger, config IndicatorConfig) *logCanvas {
	return &logCanvas{logger: logger.Named(fmt.Sprintf("canvas(%dpx %s)", config.Size, config.Color))}
}

func (c *logCanvas) Show(x, y int) {
	c.logger.Debugw("Show", "x", x, "y", y)
}

func (c *logCanvas) Move(x, y int) {
	c.logger.Debugw("Move", "x", x, "y", y)
}

func (c *logCanvas) Draw(percentage int, muted bool) {
	c.logger.Infow("Volume", "percentage", percentage, "muted", muted)
}

func (c *logCanvas) Hide() {
	c.logger.Debug("Hide")
}

func (c *logCanvas) Close() {
	c.logger.Debug("Close")
}
