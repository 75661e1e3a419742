package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
)

const (
	// ShellExecutable is empty: there's no single desktop shell lineage to exclude
	ShellExecutable = ""

	ConfigEditor = "xdg-open"
)

// IdleProcessIDs are init and the kernel's pid 0, neither owns a user's window or audio
var IdleProcessIDs = []int{0, 1}

func ForegroundProcessID() (int, bool) {
	return 0, false
}

func ProcessIDAtPoint(x, y int) (int, bool) {
	return 0, false
}

func WindowPosition(pid int) (int, int, error) {
	return 0, 0, ErrNotImplemented
}

func CreateMutex(name string) error {
	lockFile := name + ".lock"
	currentPid := os.Getpid()

	lockContent, err := os.ReadFile(lockFile)
	if err == nil {
		content := strings.TrimSpace(string(lockContent))
		if len(content) > 0 && content != strconv.Itoa(currentPid) {
			lockProcessID, _ := strconv.Atoi(content)

			// go-ps reports (nil, nil) for a pid that isn't running anymore
			process, err := ps.FindProcess(lockProcessID)
			if err == nil && process != nil {
				return fmt.Errorf("another instance of %s is running", name)
			}
		}
	}

	f, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0664)
	if err != nil {
		return fmt.Errorf("cannot instantiate mutex: %w", err)
	}
	defer f.Close()

	if _, err = f.WriteString(strconv.Itoa(currentPid)); err != nil {
		return fmt.Errorf("cannot instantiate mutex: %w", err)
	}

	return nil
}
