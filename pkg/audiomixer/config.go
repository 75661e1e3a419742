package audiomixer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Ananym/Audiomixer/pkg/audiomixer/util"
)

type ConfigManager struct {
	logger             *zap.SugaredLogger
	notifier           Notifier
	stopWatcherChannel chan bool

	changeConsumers []chan bool

	configDir  string
	userConfig *viper.Viper

	current Config
}

type Config struct {
	ActivatorHotkey string `mapstructure:"activatorHotkey"`
	IncrementKey    string `mapstructure:"incrementKey"`
	DecrementKey    string `mapstructure:"decrementKey"`
	MuteToggleKey   string `mapstructure:"muteToggleKey"`
	ExitKey         string `mapstructure:"exitKey"`

	IndicatorConfig `mapstructure:",squash"`

	ScrollVolumeScale float64 `mapstructure:"scrollVolumeScale"`
	KeyVolumeScale    float64 `mapstructure:"keyVolumeScale"`

	SearchChildrenOfParents bool `mapstructure:"searchChildrenOfParents"`
	SearchMaxDepth          int  `mapstructure:"searchMaxDepth"`

	DisableTray bool `mapstructure:"disableTray"`

	// resolved from the key symbols above once the config is loaded
	Keys KeyBindings `mapstructure:"-"`
}

// KeyBindings are the configured keys, already resolved to key codes
type KeyBindings struct {
	Activators []Key
	Increment  Key
	Decrement  Key
	MuteToggle Key
	Exit       Key
}

const (
	userConfigFilename = "config.yaml"
	userConfigName     = "config"
	userConfigPath     = "."

	configType = "yaml"

	configKeyActivatorHotkey         = "activatorHotkey"
	configKeyIncrementKey            = "incrementKey"
	configKeyDecrementKey            = "decrementKey"
	configKeyMuteToggleKey           = "muteToggleKey"
	configKeyExitKey                 = "exitKey"
	configKeyIndicatorSize           = "indicatorSize"
	configKeyIndicatorColor          = "indicatorColor"
	configKeyIndicatorXCursorOffset  = "indicatorXCursorOffset"
	configKeyIndicatorYCursorOffset  = "indicatorYCursorOffset"
	configKeyIndicatorXWindowOffset  = "indicatorXWindowOffset"
	configKeyIndicatorYWindowOffset  = "indicatorYWindowOffset"
	configKeyScrollVolumeScale       = "scrollVolumeScale"
	configKeyKeyVolumeScale          = "keyVolumeScale"
	configKeySearchChildrenOfParents = "searchChildrenOfParents"
	configKeySearchMaxDepth          = "searchMaxDepth"
	configKeyDisableTray             = "disableTray"
)

var errInvalidConfig = errors.New("invalid config")

// NewConfig creates a config manager reading config.yaml from configDir, the working directory when empty
func NewConfig(logger *zap.SugaredLogger, notifier Notifier, configDir string) (*ConfigManager, error) {
	if configDir == "" {
		configDir = userConfigPath
	}

	return newConfigManager(logger, notifier, configDir)
}

func newConfigManager(logger *zap.SugaredLogger, notifier Notifier, configDir string) (*ConfigManager, error) {
	logger = logger.Named("config")

	cc := &ConfigManager{
		logger:             logger,
		notifier:           notifier,
		changeConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
		configDir:          configDir,
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(configType)
	userConfig.AddConfigPath(configDir)

	userConfig.SetDefault(configKeyActivatorHotkey, "ctrl+shift")
	userConfig.SetDefault(configKeyIncrementKey, "}")
	userConfig.SetDefault(configKeyDecrementKey, "{")
	userConfig.SetDefault(configKeyMuteToggleKey, "M")
	userConfig.SetDefault(configKeyExitKey, "X")
	userConfig.SetDefault(configKeyIndicatorSize, 80)
	userConfig.SetDefault(configKeyIndicatorColor, "green")
	userConfig.SetDefault(configKeyIndicatorXCursorOffset, 15)
	userConfig.SetDefault(configKeyIndicatorYCursorOffset, 15)
	userConfig.SetDefault(configKeyIndicatorXWindowOffset, 80)
	userConfig.SetDefault(configKeyIndicatorYWindowOffset, 80)
	userConfig.SetDefault(configKeyScrollVolumeScale, 0.1)
	userConfig.SetDefault(configKeyKeyVolumeScale, 0.1)
	userConfig.SetDefault(configKeySearchChildrenOfParents, false)
	userConfig.SetDefault(configKeySearchMaxDepth, 2)
	userConfig.SetDefault(configKeyDisableTray, false)

	cc.userConfig = userConfig

	logger.Debug("Created config instance")

	return cc, nil
}

func (cc *ConfigManager) filepath() string {
	return filepath.Join(cc.configDir, userConfigFilename)
}

// Load reads and validates the config file. The previous config stays current when it fails
func (cc *ConfigManager) Load() error {
	configFilepath := cc.filepath()
	cc.logger.Debugw("Loading config", "path", configFilepath)

	// make sure it exists
	if !util.FileExists(configFilepath) {
		cc.logger.Warnw("Config file not found", "path", configFilepath)
		cc.notifier.Notify("Can't find configuration!",
			fmt.Sprintf("%s must be in the same directory as audiomixer. Please re-launch", userConfigFilename))

		return fmt.Errorf("config file doesn't exist: %s", configFilepath)
	}

	if err := cc.userConfig.ReadInConfig(); err != nil {
		cc.logger.Warnw("Viper failed to read user config", "error", err)

		// if the error is yaml-format-related, show a sensible error. otherwise, show 'em to the logs
		if strings.Contains(err.Error(), "yaml") {
			cc.notifier.Notify("Invalid configuration!",
				fmt.Sprintf("Please make sure %s is in a valid YAML format.", userConfigFilename))
		} else {
			cc.notifier.Notify("Error loading configuration!", "Please check audiomixer's logs for more details.")
		}

		return fmt.Errorf("read user config: %w", err)
	}

	next, err := cc.populateFromViper()
	if err != nil {
		cc.logger.Warnw("Failed to populate config fields", "error", err)
		cc.notifier.Notify("Invalid configuration!", err.Error())

		return fmt.Errorf("populate config fields: %w", err)
	}

	cc.current = next

	cc.logger.Info("Loaded config successfully")
	cc.logger.Infow("Config values",
		"activatorHotkey", next.ActivatorHotkey,
		"scrollVolumeScale", next.ScrollVolumeScale,
		"keyVolumeScale", next.KeyVolumeScale,
		"searchChildrenOfParents", next.SearchChildrenOfParents,
		"searchMaxDepth", next.SearchMaxDepth)

	return nil
}

// SubscribeToChanges allows external components to learn about config file changes.
// A pending, unconsumed change isn't signalled twice
func (cc *ConfigManager) SubscribeToChanges() chan bool {
	c := make(chan bool, 1)
	cc.changeConsumers = append(cc.changeConsumers, c)

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and notifies subscribers when they happen
func (cc *ConfigManager) WatchConfigFileChanges() {
	cc.logger.Debugw("Starting to watch user config file for changes", "path", cc.filepath())

	const (
		minTimeBetweenReloadAttempts = time.Millisecond * 500
		delayBetweenEventAndReload   = time.Millisecond * 50
	)

	lastAttemptedReload := time.Now()

	// establish watch using viper as opposed to doing it ourselves, though our internal cooldown is still required
	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) {
			return
		}

		now := time.Now()

		// many editors will write to a file twice
		if !lastAttemptedReload.Add(minTimeBetweenReloadAttempts).Before(now) {
			return
		}

		cc.logger.Debugw("Config file modified, requesting reload", "event", event)

		// wait a bit to let the editor actually flush the new file contents to disk
		<-time.After(delayBetweenEventAndReload)

		cc.onConfigChanged()

		lastAttemptedReload = now
	})
	cc.userConfig.WatchConfig()

	// wait till they stop us
	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(nil)
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *ConfigManager) StopWatchingConfigFile() {
	cc.stopWatcherChannel <- true
}

func (cc *ConfigManager) populateFromViper() (Config, error) {
	var next Config

	err := cc.userConfig.Unmarshal(&next, func(dConf *mapstructure.DecoderConfig) {
		dConf.WeaklyTypedInput = false
	})
	if err != nil {
		return Config{}, err
	}

	if err := next.resolveKeys(); err != nil {
		return Config{}, err
	}

	if err := next.validate(); err != nil {
		return Config{}, err
	}

	cc.logger.Debug("Populated config fields from viper")

	return next, nil
}

func (c *Config) resolveKeys() error {
	activators, err := ParseCombo(c.ActivatorHotkey)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errInvalidConfig, configKeyActivatorHotkey, err)
	}

	if len(activators) == 0 {
		return fmt.Errorf("%w: %s is empty", errInvalidConfig, configKeyActivatorHotkey)
	}

	c.Keys.Activators = activators

	bindings := []struct {
		name   string
		symbol string
		key    *Key
	}{
		{configKeyIncrementKey, c.IncrementKey, &c.Keys.Increment},
		{configKeyDecrementKey, c.DecrementKey, &c.Keys.Decrement},
		{configKeyMuteToggleKey, c.MuteToggleKey, &c.Keys.MuteToggle},
		{configKeyExitKey, c.ExitKey, &c.Keys.Exit},
	}

	for _, binding := range bindings {
		key, err := ParseKey(binding.symbol)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errInvalidConfig, binding.name, err)
		}

		*binding.key = key
	}

	return nil
}

func (c *Config) validate() error {
	if c.SearchMaxDepth < 0 {
		return fmt.Errorf("%w: %s must not be negative", errInvalidConfig, configKeySearchMaxDepth)
	}

	if c.ScrollVolumeScale <= 0 || c.KeyVolumeScale <= 0 {
		return fmt.Errorf("%w: %s and %s must be positive", errInvalidConfig, configKeyScrollVolumeScale, configKeyKeyVolumeScale)
	}

	return nil
}

func (cc *ConfigManager) onConfigChanged() {
	cc.logger.Debug("Notifying consumers about configuration change")

	for _, consumer := range cc.changeConsumers {
		select {
		case consumer <- true:
		default:
		}
	}
}
