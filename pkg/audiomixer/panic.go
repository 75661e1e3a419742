package audiomixer

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Ananym/Audiomixer/pkg/audiomixer/util"
)

const (
	crashlogFilename        = "audiomixer-crash-%s.log"
	crashlogTimestampFormat = "2006.01.02-15.04.05"
	crashlogRule            = "-----------------------------------------------------------------"
)

// crashReport is everything that ends up in a crash log
type crashReport struct {
	at        time.Time
	component string
	version   string
	cause     any
	stack     []byte
}

func (r crashReport) String() string {
	var b strings.Builder

	fmt.Fprintln(&b, crashlogRule)
	fmt.Fprintln(&b, "audiomixer crashed while running the", r.component)
	fmt.Fprintln(&b, "Please share this file when reporting the problem.")
	fmt.Fprintln(&b, crashlogRule)
	fmt.Fprintf(&b, "Time: %s\n", r.at.Format(crashlogTimestampFormat))

	if r.version != "" {
		fmt.Fprintf(&b, "Version: %s\n", r.version)
	}

	fmt.Fprintf(&b, "Panic: %v\n", r.cause)
	fmt.Fprintf(&b, "Stack trace:\n%s\n", r.stack)
	fmt.Fprintln(&b, crashlogRule)

	return b.String()
}

// writeCrashlog stores the report under dir and returns the file's path
func writeCrashlog(dir string, report crashReport) (string, error) {
	if err := util.EnsureDirExists(dir); err != nil {
		return "", fmt.Errorf("ensure crashlog dir exists: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf(crashlogFilename, report.at.Format(crashlogTimestampFormat)))

	if err := os.WriteFile(path, []byte(report.String()), 0o644); err != nil {
		return "", fmt.Errorf("write crashlog: %w", err)
	}

	return path, nil
}

// recoverFromPanic must be deferred directly. It turns a panic in component into
// a crash log, a notification and exit code 1
func (d *Audiomixer) recoverFromPanic(component string) {
	r := recover()
	if r == nil {
		return
	}

	report := crashReport{
		at:        time.Now(),
		component: component,
		version:   d.version,
		cause:     r,
		stack:     debug.Stack(),
	}

	path, err := writeCrashlog(logDirectory, report)
	if err != nil {
		// nowhere left to report to
		panic(fmt.Errorf("%w (while handling panic: %v)", err, r))
	}

	d.logger.Errorw("Encountered and logged panic, crashing",
		"component", component,
		"crashlogPath", path,
		"error", r)

	d.notifier.Notify("Unexpected crash occurred...", fmt.Sprintf("More details in %s", path))

	d.logger.Errorw("Quitting", "exitCode", 1)
	_ = d.logger.Sync()
	os.Exit(1)
}
