package audiomixer

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier shows short messages to the user outside of the log
type Notifier interface {
	Notify(title string, message string)
}

// toastNotifier shows desktop notifications (toasts on Windows, libnotify on Linux)
type toastNotifier struct {
	logger *zap.SugaredLogger
}

func NewToastNotifier(logger *zap.SugaredLogger) (Notifier, error) {
	logger = logger.Named("notifier")

	tn := &toastNotifier{logger: logger}

	logger.Debug("Created toast notifier instance")

	return tn, nil
}

func (tn *toastNotifier) Notify(title string, message string) {
	tn.logger.Infow("Sending toast notification", "title", title, "message", message)

	if err := beeep.Notify(title, message, ""); err != nil {
		tn.logger.Errorw("Failed to send toast notification", "error", err)
	}
}
