// Package audiomixer adjusts the volume of whichever application the user points at
// or has focused, while an activator key combo is held
package audiomixer

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/Ananym/Audiomixer/pkg/audiomixer/util"
)

const instanceName = "audiomixer"

// Audiomixer is the main entity managing all subcomponents
type Audiomixer struct {
	logger    *zap.SugaredLogger
	notifier  Notifier
	configMan *ConfigManager

	newBackend    func(logger *zap.SugaredLogger) (AudioBackend, error)
	windows       WindowSystem
	listProcesses processLister

	// the queue of the run in progress, signal and config watchers push into it.
	// exit and restart requests arriving between runs wait for the next queue
	queueLock      sync.Mutex
	currentQueue   *EventQueue
	pendingExit    bool
	pendingRestart bool

	tray            *trayMenu
	runningWithTray bool
	version         string
	verbose         bool
}

type consumerResult struct {
	reason EndReason
	err    error
}

func NewAudiomixer(logger *zap.SugaredLogger, verbose bool, configDir string) (*Audiomixer, error) {
	logger = logger.Named("audiomixer")

	notifier, err := NewToastNotifier(logger)
	if err != nil {
		logger.Errorw("Failed to create ToastNotifier", "error", err)
		return nil, fmt.Errorf("create new ToastNotifier: %w", err)
	}

	config, err := NewConfig(logger, notifier, configDir)
	if err != nil {
		logger.Errorw("Failed to create Config", "error", err)
		return nil, fmt.Errorf("create new Config: %w", err)
	}

	d := &Audiomixer{
		logger:     logger,
		notifier:   notifier,
		configMan:  config,
		newBackend: newAudioBackend,
		windows:    osWindowSystem{},
		verbose:    verbose,
	}

	logger.Debug("Created audiomixer instance")

	return d, nil
}

func (d *Audiomixer) currConf() Config {
	return d.configMan.current
}

// Initialize loads the config and runs until exit is requested
func (d *Audiomixer) Initialize() error {
	d.logger.Debug("Initializing")

	if err := util.CreateMutex(instanceName); err != nil {
		d.logger.Errorw("Failed to acquire single instance lock", "error", err)
		d.notifier.Notify("Audio Mixer is already running", "Only one instance can run at a time.")

		return fmt.Errorf("acquire single instance lock: %w", err)
	}

	// load the config for the first time
	if err := d.configMan.Load(); err != nil {
		d.logger.Errorw("Failed to load config during initialization", "error", err)
		return fmt.Errorf("load config during init: %w", err)
	}

	d.setupInterruptHandler()

	if d.currConf().DisableTray {
		d.logger.Debugw("Running without tray icon", "reason", "disabled in config")

		// run in main thread while waiting on ctrl+C
		d.run()
	} else {
		d.runningWithTray = true
		d.initializeTray(d.run)
	}

	return nil
}

// SetVersion causes audiomixer to add a version string to its tray menu if called before Initialize
func (d *Audiomixer) SetVersion(version string) {
	d.version = version
}

// ConfigPath returns the config file this instance reads and watches
func (d *Audiomixer) ConfigPath() string {
	return d.configMan.filepath()
}

// Verbose returns a boolean indicating whether audiomixer is running in verbose mode
func (d *Audiomixer) Verbose() bool {
	return d.verbose
}

func (d *Audiomixer) setupInterruptHandler() {
	interruptChannel := util.SetupCloseHandler()

	go func() {
		for signal := range interruptChannel {
			d.logger.Debugw("Interrupted", "signal", signal)
			d.push(ExitRequestedEvent{})
		}
	}()
}

func (d *Audiomixer) setupOnConfigChange() {
	configChangedChannel := d.configMan.SubscribeToChanges()

	go func() {
		for range configChangedChannel {
			d.logger.Info("Detected config file change, restarting")
			d.push(RestartRequestedEvent{})
		}
	}()
}

func (d *Audiomixer) push(event Event) {
	d.queueLock.Lock()
	defer d.queueLock.Unlock()

	if d.currentQueue != nil {
		d.currentQueue.Push(event)
		return
	}

	switch event.(type) {
	case ExitRequestedEvent:
		d.pendingExit = true
	case RestartRequestedEvent:
		d.pendingRestart = true
	default:
		return
	}

	d.logger.Debugw("No run in progress, holding request", "event", event)
}

// attachQueue routes pushes to queue, nil detaches. Requests left unread in the
// detached queue or held since the last run are delivered to a newly attached one.
// The detached queue must have no consumer left
func (d *Audiomixer) attachQueue(queue *EventQueue) {
	d.queueLock.Lock()
	defer d.queueLock.Unlock()

	if previous := d.currentQueue; previous != nil && previous != queue {
		for previous.Len() > 0 {
			switch previous.Pop().(type) {
			case ExitRequestedEvent:
				d.pendingExit = true
			case RestartRequestedEvent:
				d.pendingRestart = true
			}
		}
	}

	d.currentQueue = queue
	if queue == nil {
		return
	}

	if d.pendingExit {
		queue.Push(ExitRequestedEvent{})
	}

	if d.pendingRestart {
		queue.Push(RestartRequestedEvent{})
	}

	d.pendingExit, d.pendingRestart = false, false
}

func (d *Audiomixer) queue() *EventQueue {
	d.queueLock.Lock()
	defer d.queueLock.Unlock()

	return d.currentQueue
}

func (d *Audiomixer) run() {
	defer d.recoverFromPanic("run loop")

	d.logger.Info("Run loop starting")

	go d.configMan.WatchConfigFileChanges()
	d.setupOnConfigChange()

	exitCode := 0

	for iteration := 0; ; iteration++ {
		if iteration > 0 {
			d.reloadConfig()
		}

		reason, err := d.runOnce()
		if err != nil {
			d.logger.Errorw("Run failed", "error", err)
			exitCode = 1
			break
		}

		if reason == EndReasonExit {
			break
		}

		d.logger.Info("Restarting")
	}

	if err := d.stop(); err != nil {
		d.logger.Warnw("Failed to stop audiomixer", "error", err)
		exitCode = 1
	}

	os.Exit(exitCode)
}

func (d *Audiomixer) reloadConfig() {
	if err := d.configMan.Load(); err != nil {
		d.logger.Warnw("Failed to reload config, keeping the previous one", "error", err)
		return
	}

	d.logger.Info("Reloaded config successfully")
	d.notifier.Notify("Configuration reloaded!", "Your changes have been applied.")
}

// runOnce builds the whole stack from the current config and blocks until the
// event handler ends. Listeners are always stopped before it returns
func (d *Audiomixer) runOnce() (EndReason, error) {
	conf := d.currConf()

	queue := NewEventQueue()
	d.attachQueue(queue)
	defer d.attachQueue(nil)

	tree := newProcessTree(d.logger, d.listProcesses)
	resolver := newSessionResolver(d.logger, tree, ResolverConfig{
		MaxDepth:                conf.SearchMaxDepth,
		SearchChildrenOfParents: conf.SearchChildrenOfParents,
		Exclusions:              resolverExclusions(d.logger, tree, util.IdleProcessIDs, util.ShellExecutable),
		Verbose:                 d.verbose,
	})

	ind := newIndicator(d.logger, conf.IndicatorConfig, nil)

	activator := NewActivatorState(d.logger, conf.Keys.Activators, queue)
	listeners := newInputListeners(d.logger,
		newKeyboardHandler(d.logger, queue, conf.Keys, activator),
		newMouseHandler(d.logger, queue, activator))
	listeners = append(listeners, newTrayListener(d, queue))

	var started []listener
	defer func() {
		for idx := len(started) - 1; idx >= 0; idx-- {
			started[idx].Stop()
		}

		d.logger.Debug("Stopped all listeners")
	}()

	for _, l := range listeners {
		if err := l.Start(); err != nil {
			d.logger.Errorw("Failed to start listener", "error", err)
			return EndReasonExit, fmt.Errorf("start listener: %w", err)
		}

		started = append(started, l)
	}

	results := make(chan consumerResult, 1)
	go d.consume(&conf, queue, ind, resolver, results)

	// the indicator loop runs here until the handler closes it
	ind.Run()

	result := <-results

	return result.reason, result.err
}

// consume runs the event handler on a locked OS thread, the audio backend is bound to it
func (d *Audiomixer) consume(conf *Config, queue *EventQueue, ind *indicator, resolver *sessionResolver, results chan<- consumerResult) {
	defer d.recoverFromPanic("event handler")

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	backend, err := d.newBackend(d.logger)
	if err != nil {
		d.logger.Errorw("Failed to create audio backend", "error", err)
		ind.QueueClose()
		results <- consumerResult{err: fmt.Errorf("create audio backend: %w", err)}

		return
	}

	handler := newEventHandler(d.logger, conf, queue, ind, resolver, backend, d.windows)
	reason := handler.Run()
	d.attachQueue(nil)

	if err := backend.Release(); err != nil {
		d.logger.Warnw("Failed to release audio backend", "error", err)
	}

	results <- consumerResult{reason: reason}
}

func (d *Audiomixer) stop() error {
	d.logger.Info("Stopping")

	d.configMan.StopWatchingConfigFile()

	if d.runningWithTray {
		d.stopTray()
	}

	// attempt to sync on exit - this won't necessarily work but can't harm
	_ = d.logger.Sync()

	return nil
}
