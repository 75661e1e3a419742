package audiomixer

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/lxn/win"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// lxn/win doesn't wrap the low-level hook API, so those few calls go through user32 directly
const (
	whKeyboardLL = 13
	whMouseLL    = 14
	hcAction     = 0
	wheelDelta   = 120
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

// the OS calls back into these from the hook threads; callbacks are a limited resource,
// so they're created once per process and dispatch to whichever handlers the current run installed
var (
	activeKeyboard atomic.Pointer[keyboardHandler]
	activeMouse    atomic.Pointer[mouseHandler]

	keyboardHookCallback = windows.NewCallback(keyboardHookProc)
	mouseHookCallback    = windows.NewCallback(mouseHookProc)
)

type kbdllHookStruct struct {
	VkCode    uint32
	ScanCode  uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type msllHookStruct struct {
	X, Y      int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

func keyboardHookProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) == hcAction {
		if kh := activeKeyboard.Load(); kh != nil {
			info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			key := Key(info.VkCode)

			suppress := false
			switch wParam {
			case win.WM_KEYDOWN, win.WM_SYSKEYDOWN:
				suppress = kh.OnPress(key)
			case win.WM_KEYUP, win.WM_SYSKEYUP:
				suppress = kh.OnRelease(key)
			}

			if suppress {
				return 1
			}
		}
	}

	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

func mouseHookProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) == hcAction {
		if mh := activeMouse.Load(); mh != nil {
			info := (*msllHookStruct)(unsafe.Pointer(lParam))
			x, y := int(info.X), int(info.Y)

			suppress := false
			switch wParam {
			case win.WM_MOUSEMOVE:
				suppress = mh.OnMove(x, y)
			case win.WM_MOUSEWHEEL:
				suppress = mh.OnScroll(x, y, wheelNotches(info.MouseData))
			case win.WM_LBUTTONDOWN, win.WM_LBUTTONUP:
				suppress = mh.OnClick(x, y, MouseButtonLeft, wParam == win.WM_LBUTTONDOWN)
			case win.WM_RBUTTONDOWN, win.WM_RBUTTONUP:
				suppress = mh.OnClick(x, y, MouseButtonRight, wParam == win.WM_RBUTTONDOWN)
			case win.WM_MBUTTONDOWN, win.WM_MBUTTONUP:
				suppress = mh.OnClick(x, y, MouseButtonMiddle, wParam == win.WM_MBUTTONDOWN)
			}

			if suppress {
				return 1
			}
		}
	}

	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

// wheelNotches converts the wheel delta in the high word of mouseData, high resolution
// wheels report fractions of a notch which still count as one
func wheelNotches(mouseData uint32) int {
	delta := int(int16(mouseData >> 16))

	notches := delta / wheelDelta
	if notches == 0 && delta != 0 {
		if delta > 0 {
			return 1
		}

		return -1
	}

	return notches
}

// hookListener services one low-level hook on its own locked OS thread, as the
// hook is called back through that thread's message loop
type hookListener struct {
	logger   *zap.SugaredLogger
	name     string
	hookID   uintptr
	callback uintptr

	install   func()
	uninstall func()

	threadID uint32
	done     chan struct{}
}

func newInputListeners(logger *zap.SugaredLogger, kh *keyboardHandler, mh *mouseHandler) []listener {
	logger = logger.Named("hooks")

	return []listener{
		&hookListener{
			logger:    logger,
			name:      "keyboard",
			hookID:    whKeyboardLL,
			callback:  keyboardHookCallback,
			install:   func() { activeKeyboard.Store(kh) },
			uninstall: func() { activeKeyboard.Store(nil) },
		},
		&hookListener{
			logger:    logger,
			name:      "mouse",
			hookID:    whMouseLL,
			callback:  mouseHookCallback,
			install:   func() { activeMouse.Store(mh) },
			uninstall: func() { activeMouse.Store(nil) },
		},
	}
}

func (l *hookListener) Start() error {
	started := make(chan error, 1)
	l.done = make(chan struct{})

	l.install()
	go l.loop(started)

	if err := <-started; err != nil {
		l.uninstall()
		<-l.done

		return err
	}

	l.logger.Debugw("Input hook installed", "hook", l.name)

	return nil
}

func (l *hookListener) loop(started chan<- error) {
	defer close(l.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.threadID = windows.GetCurrentThreadId()

	var module windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &module); err != nil {
		started <- fmt.Errorf("get module handle for %s hook: %w", l.name, err)
		return
	}

	hook, _, err := procSetWindowsHookExW.Call(l.hookID, l.callback, uintptr(module), 0)
	if hook == 0 {
		started <- fmt.Errorf("set %s hook: %w", l.name, err)
		return
	}
	defer procUnhookWindowsHookEx.Call(hook)

	// make sure the thread has a message queue before anyone posts WM_QUIT to it
	var msg win.MSG
	win.PeekMessage(&msg, 0, 0, 0, win.PM_NOREMOVE)

	started <- nil

	for {
		// 0 is WM_QUIT, -1 is an error
		if win.GetMessage(&msg, 0, 0, 0) <= 0 {
			return
		}
	}
}

func (l *hookListener) Stop() {
	procPostThreadMessageW.Call(uintptr(l.threadID), win.WM_QUIT, 0, 0)
	<-l.done

	l.uninstall()

	l.logger.Debugw("Input hook removed", "hook", l.name)
}
