package util

import (
	"errors"
	"fmt"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const (
	// ShellExecutable is the desktop shell whose top-most ancestor is excluded from session searches
	ShellExecutable = "explorer.exe"

	// ConfigEditor opens the config file from the tray menu
	ConfigEditor = "notepad.exe"
)

// IdleProcessIDs are the system/idle processes that never own a user's window or audio
var IdleProcessIDs = []int{0, 4}

// ForegroundProcessID returns the pid owning the current foreground window.
// A zero pid (no foreground window, or the system idle process) reports false
func ForegroundProcessID() (int, bool) {
	hwnd := win.GetForegroundWindow()
	if hwnd == 0 {
		return 0, false
	}

	return windowProcessID(hwnd)
}

// ProcessIDAtPoint returns the pid owning the window found at the given screen coordinates
func ProcessIDAtPoint(x, y int) (int, bool) {
	hwnd := win.WindowFromPoint(win.POINT{X: int32(x), Y: int32(y)})
	if hwnd == 0 {
		return 0, false
	}

	return windowProcessID(hwnd)
}

// WindowPosition returns the top-left corner of the foreground window owned by pid
func WindowPosition(pid int) (int, int, error) {
	hwnd := win.GetForegroundWindow()
	if hwnd == 0 {
		return 0, 0, errors.New("no foreground window")
	}

	ownerPID, ok := windowProcessID(hwnd)
	if !ok || ownerPID != pid {
		return 0, 0, fmt.Errorf("foreground window isn't owned by pid %d", pid)
	}

	var rect win.RECT
	if !win.GetWindowRect(hwnd, &rect) {
		return 0, 0, fmt.Errorf("get window rect for pid %d", pid)
	}

	return int(rect.Left), int(rect.Top), nil
}

func windowProcessID(hwnd win.HWND) (int, bool) {
	var pid uint32
	win.GetWindowThreadProcessId(hwnd, &pid)

	// check for system PID (0)
	if pid == 0 {
		return 0, false
	}

	return int(pid), true
}

func CreateMutex(name string) error {
	namePtr, err := windows.UTF16PtrFromString("Global\\" + name)
	if err != nil {
		return fmt.Errorf("encode mutex name: %w", err)
	}

	// relying on OS to release it on program exit
	_, err = windows.CreateMutex(nil, false, namePtr)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		return fmt.Errorf("another instance of %s is running", name)
	}

	return err
}
