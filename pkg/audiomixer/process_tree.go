package audiomixer

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-ps"
	"go.uber.org/zap"
)

// processLister returns every process currently running, ps.Processes in production
type processLister func() ([]ps.Process, error)

// processSnapshot is the process tree as observed at one point in time.
// Processes that exited between listing and lookup simply aren't part of it
type processSnapshot struct {
	parents  map[ProcessID]ProcessID
	children map[ProcessID][]ProcessID
	names    map[ProcessID]string

	// listing order, used when several processes match a name
	order []ProcessID
}

func newProcessSnapshot(processes []ps.Process) *processSnapshot {
	s := &processSnapshot{
		parents:  make(map[ProcessID]ProcessID, len(processes)),
		children: make(map[ProcessID][]ProcessID),
		names:    make(map[ProcessID]string, len(processes)),
		order:    make([]ProcessID, 0, len(processes)),
	}

	for _, process := range processes {
		if process == nil {
			continue
		}

		pid := ProcessID(process.Pid())
		if _, dupe := s.names[pid]; dupe {
			continue
		}

		s.names[pid] = process.Executable()
		s.order = append(s.order, pid)

		// the idle process on windows is its own parent
		if ppid := ProcessID(process.PPid()); ppid != pid {
			s.parents[pid] = ppid
		}
	}

	for _, pid := range s.order {
		ppid, ok := s.parents[pid]
		if !ok {
			continue
		}

		s.children[ppid] = append(s.children[ppid], pid)
	}

	return s
}

// parent returns pid's parent, as long as that parent is still alive
func (s *processSnapshot) parent(pid ProcessID) (ProcessID, bool) {
	ppid, ok := s.parents[pid]
	if !ok {
		return 0, false
	}

	if _, alive := s.names[ppid]; !alive {
		return 0, false
	}

	return ppid, true
}

func (s *processSnapshot) childrenOf(pid ProcessID) []ProcessID {
	return s.children[pid]
}

func (s *processSnapshot) executable(pid ProcessID) (string, bool) {
	name, ok := s.names[pid]
	return name, ok
}

// processTree takes snapshots of the live process tree
type processTree struct {
	logger *zap.SugaredLogger
	list   processLister
}

func newProcessTree(logger *zap.SugaredLogger, list processLister) *processTree {
	if list == nil {
		list = ps.Processes
	}

	return &processTree{
		logger: logger.Named("process_tree"),
		list:   list,
	}
}

func (t *processTree) snapshot() (*processSnapshot, error) {
	processes, err := t.list()
	if err != nil {
		t.logger.Warnw("Failed to list processes", "error", err)
		return nil, fmt.Errorf("list processes: %w", err)
	}

	return newProcessSnapshot(processes), nil
}

// findShellRoot walks from the first running instance of the shell up its ancestor
// chain and returns the highest ancestor that is still the shell
func findShellRoot(snapshot *processSnapshot, shellExecutable string) (ProcessID, bool) {
	if shellExecutable == "" {
		return 0, false
	}

	for _, pid := range snapshot.order {
		name, _ := snapshot.executable(pid)
		if !strings.EqualFold(name, shellExecutable) {
			continue
		}

		highest := pid
		seen := map[ProcessID]struct{}{pid: {}}

		for {
			ppid, ok := snapshot.parent(highest)
			if !ok {
				break
			}

			if _, loop := seen[ppid]; loop {
				break
			}
			seen[ppid] = struct{}{}

			parentName, _ := snapshot.executable(ppid)
			if !strings.EqualFold(parentName, shellExecutable) {
				break
			}

			highest = ppid
		}

		return highest, true
	}

	return 0, false
}
