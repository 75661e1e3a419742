package audiomixer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Ananym/Audiomixer/pkg/audiomixer/util"
)

type indicatorState int

const (
	stateHidden indicatorState = iota
	stateMouseLocked
	stateWindowLocked
)

func (s indicatorState) String() string {
	switch s {
	case stateMouseLocked:
		return "mouse-locked"
	case stateWindowLocked:
		return "window-locked"
	default:
		return "hidden"
	}
}

// EndReason tells the driver why the event loop returned
type EndReason int

const (
	EndReasonExit EndReason = iota
	EndReasonRestart
)

func (r EndReason) String() string {
	if r == EndReasonRestart {
		return "restart"
	}

	return "exit"
}

// eventHandler is the single consumer of the event queue. It exclusively owns the
// indicator state, the session cache and the current session
type eventHandler struct {
	logger *zap.SugaredLogger

	queue     *EventQueue
	indicator IndicatorRenderer
	resolver  *sessionResolver
	backend   AudioBackend
	windows   WindowSystem

	scrollVolumeScale float64
	keyVolumeScale    float64

	state          indicatorState
	anchorX        int
	anchorY        int
	muted          bool
	currentSession AudioSession
	sessionCache   map[ProcessID]AudioSession
}

func newEventHandler(
	logger *zap.SugaredLogger,
	config *Config,
	queue *EventQueue,
	indicator IndicatorRenderer,
	resolver *sessionResolver,
	backend AudioBackend,
	windows WindowSystem,
) *eventHandler {
	logger = logger.Named("handler")

	h := &eventHandler{
		logger:            logger,
		queue:             queue,
		indicator:         indicator,
		resolver:          resolver,
		backend:           backend,
		windows:           windows,
		scrollVolumeScale: config.ScrollVolumeScale,
		keyVolumeScale:    config.KeyVolumeScale,
		state:             stateHidden,
		sessionCache:      make(map[ProcessID]AudioSession),
	}

	logger.Debug("Created event handler instance")

	return h
}

// Run handles queued events one at a time until exit or restart is requested
func (h *eventHandler) Run() EndReason {
	h.logger.Debug("Event loop starting")

	for {
		if reason, done := h.handle(h.queue.Pop()); done {
			h.logger.Infow("Event loop finished", "reason", reason)
			return reason
		}
	}
}

func (h *eventHandler) handle(event Event) (EndReason, bool) {
	switch e := event.(type) {
	case ScrollEvent:
		h.onScroll(e.X, e.Y, e.Delta)
	case MiddleClickEvent:
		h.onMiddleClick(e.X, e.Y)
	case ActivatorReleasedEvent:
		h.setHidden()
	case CursorMoveEvent:
		h.onCursorMove(e.X, e.Y)
	case KeyIncrementEvent:
		h.onVolumeKey(h.keyVolumeScale)
	case KeyDecrementEvent:
		h.onVolumeKey(-h.keyVolumeScale)
	case KeyMuteToggleEvent:
		h.onMuteKey()
	case ExitRequestedEvent:
		return h.finish(EndReasonExit), true
	case RestartRequestedEvent:
		return h.finish(EndReasonRestart), true
	default:
		h.logger.Warnw("Unrecognized event, ignoring", "event", fmt.Sprintf("%T", event))
	}

	return 0, false
}

func (h *eventHandler) finish(reason EndReason) EndReason {
	h.indicator.QueueClose()

	h.currentSession = nil
	h.clearSessionCache()

	return reason
}

func (h *eventHandler) onScroll(x, y, delta int) {
	pid, ok := h.windows.ProcessIDAtPoint(x, y)
	if !ok {
		h.logger.Debugw("No window under the cursor, ignoring scroll", "x", x, "y", y)
		return
	}

	session := h.sessionFor(pid)
	if session == nil {
		return
	}

	volume, ok := h.adjustVolume(session, h.scrollVolumeScale*float64(delta))
	if !ok {
		return
	}

	h.trackSession(session)

	// the level is queued before show/move so a fresh show never draws a stale one
	h.indicator.QueueUpdate(volume)
	h.enterLocked(stateMouseLocked, x, y)
}

func (h *eventHandler) onMiddleClick(x, y int) {
	pid, ok := h.windows.ProcessIDAtPoint(x, y)
	if !ok {
		h.logger.Debugw("No window under the cursor, ignoring middle click", "x", x, "y", y)
		return
	}

	session := h.sessionFor(pid)
	if session == nil {
		return
	}

	muted, ok := h.toggleMute(session)
	if !ok {
		return
	}

	h.switchMutedSession(session, muted)
	h.enterLocked(stateMouseLocked, x, y)
}

func (h *eventHandler) onCursorMove(x, y int) {
	if h.state != stateMouseLocked {
		return
	}

	if x == h.anchorX && y == h.anchorY {
		return
	}

	h.anchorX, h.anchorY = x, y
	h.indicator.QueueMove(x, y, AnchorCursor)
}

func (h *eventHandler) onVolumeKey(diff float64) {
	pid, ok := h.windows.ForegroundProcessID()
	if !ok {
		h.logger.Debug("No foreground window, ignoring volume key")
		return
	}

	session := h.sessionFor(pid)
	if session == nil {
		return
	}

	volume, ok := h.adjustVolume(session, diff)
	if !ok {
		return
	}

	x, y := h.windowAnchor(pid)

	h.trackSession(session)
	h.indicator.QueueUpdate(volume)
	h.enterLocked(stateWindowLocked, x, y)
}

func (h *eventHandler) onMuteKey() {
	pid, ok := h.windows.ForegroundProcessID()
	if !ok {
		h.logger.Debug("No foreground window, ignoring mute key")
		return
	}

	session := h.sessionFor(pid)
	if session == nil {
		return
	}

	muted, ok := h.toggleMute(session)
	if !ok {
		return
	}

	x, y := h.windowAnchor(pid)

	h.switchMutedSession(session, muted)
	h.enterLocked(stateWindowLocked, x, y)
}

// switchMutedSession makes session current after a mute toggle. The toggle result is the
// fresh mute flag, but a different session also needs its own level on the indicator
func (h *eventHandler) switchMutedSession(session AudioSession, muted bool) {
	if !sameSession(h.currentSession, session) {
		volume, err := session.GetVolume()
		if err != nil {
			h.logger.Warnw("Failed to get session volume", "session", sessionString(session), "error", err)
		} else {
			h.indicator.QueueUpdate(volume)
		}
	}

	h.currentSession = session
	h.setMuted(muted)
}

// enterLocked shows the indicator when it's hidden, and only moves it when the
// lock kind or the anchor actually changed
func (h *eventHandler) enterLocked(state indicatorState, x, y int) {
	mode := AnchorCursor
	if state == stateWindowLocked {
		mode = AnchorWindow
	}

	switch {
	case h.state == stateHidden:
		h.indicator.QueueShow(x, y, mode)
	case h.state != state || h.anchorX != x || h.anchorY != y:
		h.indicator.QueueMove(x, y, mode)
	}

	if h.state != state {
		h.logger.Debugw("Indicator state changed", "from", h.state, "to", state)
	}

	h.state = state
	h.anchorX, h.anchorY = x, y
}

func (h *eventHandler) setHidden() {
	h.currentSession = nil
	h.clearSessionCache()

	if h.state == stateHidden {
		return
	}

	h.logger.Debugw("Indicator state changed", "from", h.state, "to", stateHidden)

	h.indicator.QueueHide()
	h.state = stateHidden
}

// trackSession makes session the current one. A session switch always re-reads
// the mute flag from the backend before anything mute related is drawn
func (h *eventHandler) trackSession(session AudioSession) {
	if sameSession(h.currentSession, session) {
		return
	}

	h.currentSession = session

	muted, err := session.GetMute()
	if err != nil {
		h.logger.Warnw("Failed to get session mute state", "session", sessionString(session), "error", err)
		return
	}

	h.setMuted(muted)
}

func (h *eventHandler) setMuted(muted bool) {
	if h.muted == muted {
		return
	}

	h.muted = muted
	h.indicator.QueueSetMute(muted)
}

func (h *eventHandler) windowAnchor(pid ProcessID) (int, int) {
	x, y, err := h.windows.WindowPosition(pid)
	if err != nil {
		h.logger.Debugw("Failed to get window position, keeping previous anchor", "pid", pid, "error", err)
		return h.anchorX, h.anchorY
	}

	return x, y
}

func (h *eventHandler) adjustVolume(session AudioSession, diff float64) (float32, bool) {
	current, err := session.GetVolume()
	if err != nil {
		h.logger.Warnw("Failed to get session volume", "session", sessionString(session), "error", err)
		return 0, false
	}

	volume := util.ClampScalar(float64(current) + diff)

	if err := session.SetVolume(volume); err != nil {
		h.logger.Warnw("Failed to set session volume", "session", sessionString(session), "error", err)
		return 0, false
	}

	return volume, true
}

func (h *eventHandler) toggleMute(session AudioSession) (bool, bool) {
	muted, err := session.GetMute()
	if err != nil {
		h.logger.Warnw("Failed to get session mute state", "session", sessionString(session), "error", err)
		return false, false
	}

	if err := session.SetMute(!muted); err != nil {
		h.logger.Warnw("Failed to set session mute state", "session", sessionString(session), "error", err)
		return false, false
	}

	return !muted, true
}

// sessionFor resolves pid's session, caching hits until the indicator hides again
func (h *eventHandler) sessionFor(pid ProcessID) AudioSession {
	if session, ok := h.sessionCache[pid]; ok {
		return session
	}

	session, err := h.resolver.ResolveSession(h.backend, pid)
	if err != nil {
		h.logger.Warnw("Failed to resolve audio session", "pid", pid, "error", err)
		return nil
	}

	if session == nil {
		h.logger.Infow("No audio session found", "pid", pid)
		return nil
	}

	h.sessionCache[pid] = session

	return session
}

func (h *eventHandler) clearSessionCache() {
	for pid, session := range h.sessionCache {
		session.Release()
		delete(h.sessionCache, pid)
	}
}
