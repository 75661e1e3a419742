package audiomixer

import (
	"go.uber.org/zap"
)

// noopListener stands in for global input hooks, which need a display-server
// specific backend that isn't available here. The tray and signals still work
type noopListener struct {
	logger *zap.SugaredLogger
	name   string
}

func newInputListeners(logger *zap.SugaredLogger, kh *keyboardHandler, mh *mouseHandler) []listener {
	logger = logger.Named("hooks")

	return []listener{
		&noopListener{logger: logger, name: "keyboard"},
		&noopListener{logger: logger, name: "mouse"},
	}
}

func (l *noopListener) Start() error {
	l.logger.Warnw("Global input hooks aren't supported on this platform", "hook", l.name)
	return nil
}

func (l *noopListener) Stop() {}
