package audiomixer

import "github.com/Ananym/Audiomixer/pkg/audiomixer/util"

// WindowSystem answers which process owns the windows the user is pointing at or typing into
type WindowSystem interface {
	ForegroundProcessID() (ProcessID, bool)
	ProcessIDAtPoint(x, y int) (ProcessID, bool)
	WindowPosition(pid ProcessID) (int, int, error)
}

type osWindowSystem struct{}

func (osWindowSystem) ForegroundProcessID() (ProcessID, bool) {
	pid, ok := util.ForegroundProcessID()
	return ProcessID(pid), ok
}

func (osWindowSystem) ProcessIDAtPoint(x, y int) (ProcessID, bool) {
	pid, ok := util.ProcessIDAtPoint(x, y)
	return ProcessID(pid), ok
}

func (osWindowSystem) WindowPosition(pid ProcessID) (int, int, error) {
	return util.WindowPosition(int(pid))
}
