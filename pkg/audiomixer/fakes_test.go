package audiomixer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"
)

// fakeProcess satisfies ps.Process
type fakeProcess struct {
	pid  int
	ppid int
	exe  string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return p.ppid }
func (p fakeProcess) Executable() string { return p.exe }

func staticProcesses(processes ...fakeProcess) processLister {
	return func() ([]ps.Process, error) {
		listed := make([]ps.Process, 0, len(processes))
		for _, p := range processes {
			listed = append(listed, p)
		}

		return listed, nil
	}
}

func proc(pid, ppid int) fakeProcess {
	return fakeProcess{pid: pid, ppid: ppid, exe: fmt.Sprintf("proc%d.exe", pid)}
}

// fakeChannel is the backend side state a session handle points at
type fakeChannel struct {
	key    string
	pid    ProcessID
	state  ActivityState
	volume float32
	muted  bool

	failVolume bool
}

type fakeSession struct {
	channel  *fakeChannel
	released int
}

func (s *fakeSession) Key() string          { return s.channel.key }
func (s *fakeSession) ProcessID() ProcessID { return s.channel.pid }
func (s *fakeSession) State() ActivityState { return s.channel.state }

func (s *fakeSession) GetVolume() (float32, error) {
	if s.channel.failVolume {
		return 0, errors.New("volume unavailable")
	}

	return s.channel.volume, nil
}

func (s *fakeSession) SetVolume(v float32) error {
	if s.channel.failVolume {
		return errors.New("volume unavailable")
	}

	s.channel.volume = v

	return nil
}

func (s *fakeSession) GetMute() (bool, error) { return s.channel.muted, nil }

func (s *fakeSession) SetMute(mute bool) error {
	s.channel.muted = mute
	return nil
}

func (s *fakeSession) Release() { s.released++ }

// fakeBackend hands out fresh handles on every listing, like the real backends do
type fakeBackend struct {
	channels []*fakeChannel
	handles  []*fakeSession
	lists    int
	err      error
}

func (b *fakeBackend) add(pid ProcessID, state ActivityState, volume float32) *fakeChannel {
	c := &fakeChannel{
		key:    fmt.Sprintf("session-%d-%d", pid, len(b.channels)),
		pid:    pid,
		state:  state,
		volume: volume,
	}
	b.channels = append(b.channels, c)

	return c
}

func (b *fakeBackend) ListSessions() ([]AudioSession, error) {
	b.lists++

	if b.err != nil {
		return nil, b.err
	}

	sessions := make([]AudioSession, 0, len(b.channels))
	for _, c := range b.channels {
		handle := &fakeSession{channel: c}
		b.handles = append(b.handles, handle)
		sessions = append(sessions, handle)
	}

	return sessions, nil
}

func (b *fakeBackend) Release() error { return nil }

// unreleased counts the handles still held by somebody
func (b *fakeBackend) unreleased() int {
	count := 0
	for _, h := range b.handles {
		if h.released == 0 {
			count++
		}
	}

	return count
}

type windowPosition struct{ x, y int }

type fakeWindows struct {
	foreground ProcessID
	atPoint    map[windowPosition]ProcessID
	positions  map[ProcessID]windowPosition
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{
		atPoint:   make(map[windowPosition]ProcessID),
		positions: make(map[ProcessID]windowPosition),
	}
}

func (w *fakeWindows) ForegroundProcessID() (ProcessID, bool) {
	if w.foreground == 0 {
		return 0, false
	}

	return w.foreground, true
}

func (w *fakeWindows) ProcessIDAtPoint(x, y int) (ProcessID, bool) {
	pid, ok := w.atPoint[windowPosition{x, y}]
	return pid, ok
}

func (w *fakeWindows) WindowPosition(pid ProcessID) (int, int, error) {
	pos, ok := w.positions[pid]
	if !ok {
		return 0, 0, errors.New("no window")
	}

	return pos.x, pos.y, nil
}

// recordingRenderer records indicator commands as strings
type recordingRenderer struct {
	commands []string
}

func (r *recordingRenderer) QueueShow(x, y int, mode AnchorMode) {
	r.commands = append(r.commands, fmt.Sprintf("show %d,%d %s", x, y, mode))
}

func (r *recordingRenderer) QueueMove(x, y int, mode AnchorMode) {
	r.commands = append(r.commands, fmt.Sprintf("move %d,%d %s", x, y, mode))
}

func (r *recordingRenderer) QueueUpdate(volume float32) {
	r.commands = append(r.commands, fmt.Sprintf("update %.2f", volume))
}

func (r *recordingRenderer) QueueSetMute(muted bool) {
	r.commands = append(r.commands, fmt.Sprintf("mute %t", muted))
}

func (r *recordingRenderer) QueueHide() {
	r.commands = append(r.commands, "hide")
}

func (r *recordingRenderer) QueueClose() {
	r.commands = append(r.commands, "close")
}

func (r *recordingRenderer) reset() {
	r.commands = nil
}

// recordingCanvas is touched from the indicator loop and read by the test afterwards
type recordingCanvas struct {
	lock  sync.Mutex
	calls []string
}

func (c *recordingCanvas) record(call string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.calls = append(c.calls, call)
}

func (c *recordingCanvas) Show(x, y int) { c.record(fmt.Sprintf("show %d,%d", x, y)) }
func (c *recordingCanvas) Move(x, y int) { c.record(fmt.Sprintf("move %d,%d", x, y)) }
func (c *recordingCanvas) Hide()         { c.record("hide") }
func (c *recordingCanvas) Close()        { c.record("close") }

func (c *recordingCanvas) Draw(percentage int, muted bool) {
	c.record(fmt.Sprintf("draw %d %t", percentage, muted))
}

func (c *recordingCanvas) snapshot() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]string(nil), c.calls...)
}

type recordingSink struct {
	lock   sync.Mutex
	events []Event
}

func (s *recordingSink) Push(event Event) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.events = append(s.events, event)
}

func (s *recordingSink) snapshot() []Event {
	s.lock.Lock()
	defer s.lock.Unlock()

	return append([]Event(nil), s.events...)
}

type fakeNotifier struct {
	lock   sync.Mutex
	titles []string
}

func (n *fakeNotifier) Notify(title string, message string) {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.titles = append(n.titles, title)
}

func (n *fakeNotifier) notified() []string {
	n.lock.Lock()
	defer n.lock.Unlock()

	return append([]string(nil), n.titles...)
}

const testTimeout = 2 * time.Second
