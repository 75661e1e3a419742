package audiomixer

import (
	_ "embed"

	"fyne.io/systray"

	"github.com/Ananym/Audiomixer/pkg/audiomixer/util"
)

//go:embed assets/trayicon.ico
var trayIconData []byte

// trayMenu holds the menu items created once the tray is ready
type trayMenu struct {
	editConfig   *systray.MenuItem
	reloadConfig *systray.MenuItem
	quit         *systray.MenuItem
}

func (d *Audiomixer) initializeTray(onDone func()) {
	logger := d.logger.Named("tray")

	onReady := func() {
		logger.Debug("Tray instance ready")

		systray.SetTemplateIcon(trayIconData, trayIconData)
		systray.SetTitle("Audio Mixer")
		systray.SetTooltip("Audio Mixer")

		menu := &trayMenu{}

		menu.editConfig = systray.AddMenuItem("Edit configuration", "Open config file for editing")
		menu.reloadConfig = systray.AddMenuItem("Reload configuration", "Apply config changes and re-scan processes")

		if d.version != "" {
			systray.AddSeparator()
			versionInfo := systray.AddMenuItem(d.version, "")
			versionInfo.Disable()
		}

		systray.AddSeparator()
		menu.quit = systray.AddMenuItem("Exit", "Stop audiomixer and quit")

		d.tray = menu

		onDone()
	}

	onExit := func() {
		logger.Debug("Tray exited")
	}

	logger.Debug("Running in tray")
	systray.Run(onReady, onExit)
}

// trayListener forwards menu clicks to one run's event queue, until that run stops it
type trayListener struct {
	d    *Audiomixer
	sink EventSink
	stop chan struct{}
	done chan struct{}
}

func newTrayListener(d *Audiomixer, sink EventSink) *trayListener {
	return &trayListener{
		d:    d,
		sink: sink,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (tl *trayListener) Start() error {
	menu := tl.d.tray
	logger := tl.d.logger.Named("tray")

	go func() {
		defer close(tl.done)

		if menu == nil {
			<-tl.stop
			return
		}

		for {
			select {
			case <-menu.quit.ClickedCh:
				logger.Info("Exit menu item clicked, stopping")
				tl.sink.Push(ExitRequestedEvent{})

			case <-menu.reloadConfig.ClickedCh:
				logger.Info("Reload menu item clicked, restarting")
				tl.sink.Push(RestartRequestedEvent{})

			case <-menu.editConfig.ClickedCh:
				logger.Info("Edit config menu item clicked, opening config for editing")

				if err := util.OpenExternal(logger, util.ConfigEditor, tl.d.configMan.filepath()); err != nil {
					logger.Warnw("Failed to open config file for editing", "error", err)
				}

			case <-tl.stop:
				return
			}
		}
	}()

	return nil
}

func (tl *trayListener) Stop() {
	close(tl.stop)
	<-tl.done
}

func (d *Audiomixer) stopTray() {
	d.logger.Debug("Quitting tray")
	systray.Quit()
}
