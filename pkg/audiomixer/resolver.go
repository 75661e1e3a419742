package audiomixer

import (
	"fmt"

	"go.uber.org/zap"
)

// ResolverConfig bounds the process tree search done for each resolve call
type ResolverConfig struct {
	MaxDepth                int
	SearchChildrenOfParents bool

	// Exclusions are never traversed: the idle/system process and the desktop shell root
	Exclusions []ProcessID

	// Verbose logs every visited process
	Verbose bool
}

// sessionOwners maps the pids owning a session to that session, split by activity
type sessionOwners struct {
	active   map[ProcessID]AudioSession
	inactive map[ProcessID]AudioSession
}

func (o sessionOwners) isActive(pid ProcessID) bool {
	_, ok := o.active[pid]
	return ok
}

func (o sessionOwners) isInactive(pid ProcessID) bool {
	_, ok := o.inactive[pid]
	return ok
}

// searchAccumulator carries the state of a single resolve call
type searchAccumulator struct {
	active    ProcessID
	hasActive bool

	inactive      ProcessID
	inactiveDepth int
	hasInactive   bool

	// pids whose subtree has already been (or is being) searched
	finished map[ProcessID]struct{}
}

// offerInactive keeps the shallowest inactive owner, the first one found wins ties
func (acc *searchAccumulator) offerInactive(pid ProcessID, depth int) {
	if acc.hasInactive && depth >= acc.inactiveDepth {
		return
	}

	acc.inactive = pid
	acc.inactiveDepth = depth
	acc.hasInactive = true
}

func (acc *searchAccumulator) setActive(pid ProcessID) {
	acc.active = pid
	acc.hasActive = true
}

func (acc *searchAccumulator) result() (ProcessID, bool) {
	if acc.hasActive {
		return acc.active, true
	}

	if acc.hasInactive {
		return acc.inactive, true
	}

	return 0, false
}

// sessionResolver maps an arbitrary pid to the closest controllable audio session.
// It holds no state between calls
type sessionResolver struct {
	logger *zap.SugaredLogger
	tree   *processTree

	maxDepth                int
	searchChildrenOfParents bool
	exclusions              map[ProcessID]struct{}
	verbose                 bool
}

func newSessionResolver(logger *zap.SugaredLogger, tree *processTree, config ResolverConfig) *sessionResolver {
	logger = logger.Named("resolver")

	r := &sessionResolver{
		logger:                  logger,
		tree:                    tree,
		maxDepth:                config.MaxDepth,
		searchChildrenOfParents: config.SearchChildrenOfParents,
		exclusions:              make(map[ProcessID]struct{}, len(config.Exclusions)),
		verbose:                 config.Verbose,
	}

	for _, pid := range config.Exclusions {
		r.exclusions[pid] = struct{}{}
	}

	logger.Debugw("Created session resolver",
		"maxDepth", r.maxDepth,
		"searchChildrenOfParents", r.searchChildrenOfParents,
		"exclusions", config.Exclusions)

	return r
}

// resolverExclusions discovers the pids a search must never cross. The shell root is looked up
// once here, at startup, and threaded into ResolverConfig
func resolverExclusions(logger *zap.SugaredLogger, tree *processTree, idle []int, shellExecutable string) []ProcessID {
	exclusions := make([]ProcessID, 0, len(idle)+1)
	for _, pid := range idle {
		exclusions = append(exclusions, ProcessID(pid))
	}

	if shellExecutable == "" {
		return exclusions
	}

	snapshot, err := tree.snapshot()
	if err != nil {
		logger.Warnw("Failed to look up shell root, searches may escape into unrelated windows", "error", err)
		return exclusions
	}

	shellRoot, ok := findShellRoot(snapshot, shellExecutable)
	if !ok {
		logger.Infow("Shell isn't running, no shell root to exclude", "shell", shellExecutable)
		return exclusions
	}

	logger.Debugw("Found shell root", "shell", shellExecutable, "pid", shellRoot)

	return append(exclusions, shellRoot)
}

// ResolveSession returns the best session to manipulate for target, or nil when there's none.
// Sessions that weren't picked are released before returning
func (r *sessionResolver) ResolveSession(backend AudioBackend, target ProcessID) (AudioSession, error) {
	sessions, err := backend.ListSessions()
	if err != nil {
		r.logger.Warnw("Failed to list audio sessions", "error", err)
		return nil, fmt.Errorf("list audio sessions: %w", err)
	}

	owners := sessionOwners{
		active:   make(map[ProcessID]AudioSession),
		inactive: make(map[ProcessID]AudioSession),
	}

	// a process can own several sessions, keep the first one of the best activity state
	var unused []AudioSession
	for _, session := range sessions {
		pid := session.ProcessID()

		if session.State() == Active {
			if _, ok := owners.active[pid]; ok {
				unused = append(unused, session)
				continue
			}

			owners.active[pid] = session
			continue
		}

		if _, ok := owners.inactive[pid]; ok {
			unused = append(unused, session)
			continue
		}

		owners.inactive[pid] = session
	}

	snapshot, err := r.tree.snapshot()
	if err != nil {
		// without a tree only the target's own sessions can be found
		r.logger.Debugw("Resolving without process tree", "pid", target, "error", err)
		snapshot = newProcessSnapshot(nil)
	}

	var chosen AudioSession
	if pid, ok := r.findOwner(snapshot, target, owners); ok {
		if session, active := owners.active[pid]; active {
			chosen = session
		} else {
			chosen = owners.inactive[pid]
		}
	}

	for _, session := range owners.active {
		if session != chosen {
			unused = append(unused, session)
		}
	}
	for _, session := range owners.inactive {
		if session != chosen {
			unused = append(unused, session)
		}
	}

	for _, session := range unused {
		session.Release()
	}

	r.logger.Debugw("Resolved session", "pid", target, "session", sessionString(chosen))

	return chosen, nil
}

// findOwner searches outwards from target for the pid whose session should be used:
// an active owner anywhere in range beats any inactive one, and the shallowest inactive one wins otherwise
func (r *sessionResolver) findOwner(snapshot *processSnapshot, target ProcessID, owners sessionOwners) (ProcessID, bool) {
	if owners.isActive(target) {
		return target, true
	}

	acc := &searchAccumulator{
		finished: make(map[ProcessID]struct{}, len(r.exclusions)+1),
	}

	for pid := range r.exclusions {
		acc.finished[pid] = struct{}{}
	}

	if owners.isInactive(target) {
		acc.offerInactive(target, 0)
	}

	if r.isExcluded(target) {
		return acc.result()
	}

	acc.finished[target] = struct{}{}
	if r.descend(snapshot, target, owners, acc) {
		return acc.result()
	}

	r.ascend(snapshot, target, owners, acc)

	return acc.result()
}

// descend walks root's subtree depth-first, in listing order, down to maxDepth hops.
// It stops at the first active owner and returns true in that case.
// root itself is expected to be checked by the caller and already marked as finished
func (r *sessionResolver) descend(snapshot *processSnapshot, root ProcessID, owners sessionOwners, acc *searchAccumulator) bool {
	type frame struct {
		pid   ProcessID
		depth int
	}

	stack := []frame{{pid: root}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		r.trace("Visiting child", current.pid, current.depth)

		if current.depth > 0 {
			if owners.isActive(current.pid) {
				acc.setActive(current.pid)
				return true
			}

			if owners.isInactive(current.pid) {
				acc.offerInactive(current.pid, current.depth)
			}
		}

		if current.depth >= r.maxDepth {
			continue
		}

		// push in reverse so children pop in listing order
		children := snapshot.childrenOf(current.pid)
		for idx := len(children) - 1; idx >= 0; idx-- {
			child := children[idx]
			if _, done := acc.finished[child]; done {
				continue
			}

			acc.finished[child] = struct{}{}
			stack = append(stack, frame{pid: child, depth: current.depth + 1})
		}
	}

	return false
}

// ascend walks target's ancestor chain up to maxDepth hops, stopping at an exclusion.
// With searchChildrenOfParents every ancestor's subtree is searched as well
func (r *sessionResolver) ascend(snapshot *processSnapshot, target ProcessID, owners sessionOwners, acc *searchAccumulator) {
	current := target

	for hop := 1; hop <= r.maxDepth; hop++ {
		parent, ok := snapshot.parent(current)
		if !ok || r.isExcluded(parent) || parent == target {
			return
		}

		r.trace("Visiting parent", parent, hop)

		if owners.isActive(parent) {
			acc.setActive(parent)
			return
		}

		if owners.isInactive(parent) {
			acc.offerInactive(parent, hop)
		}

		if r.searchChildrenOfParents {
			if _, done := acc.finished[parent]; !done {
				acc.finished[parent] = struct{}{}

				if r.descend(snapshot, parent, owners, acc) {
					return
				}
			}
		}

		current = parent
	}
}

func (r *sessionResolver) trace(msg string, pid ProcessID, depth int) {
	if r.verbose {
		r.logger.Debugw(msg, "pid", pid, "depth", depth)
	}
}

func (r *sessionResolver) isExcluded(pid ProcessID) bool {
	_, ok := r.exclusions[pid]
	return ok
}
