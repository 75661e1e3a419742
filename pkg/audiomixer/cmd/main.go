package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/Ananym/Audiomixer/pkg/audiomixer"
)

var (
	gitCommit  string
	versionTag string
	buildType  string

	verbose   bool
	configDir string
)

func init() {
	flag.BoolVar(&verbose, "verbose", false, "show verbose logs (useful for debugging session lookups)")
	flag.BoolVar(&verbose, "v", false, "shorthand for --verbose")
	flag.StringVar(&configDir, "config", "", "directory holding config.yaml (defaults to the working directory)")
}

func main() {
	flag.Parse()

	logger, err := audiomixer.NewLogger(buildType)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}

	named := logger.Named("main")

	named.Infow("Starting Audio Mixer",
		"gitCommit", gitCommit,
		"versionTag", versionTag,
		"buildType", buildType,
		"verbose", verbose)

	d, err := audiomixer.NewAudiomixer(logger, verbose, configDir)
	if err != nil {
		named.Fatalw("Failed to create audiomixer object", "error", err)
	}

	configPath := d.ConfigPath()
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}

	named.Infow("Using config file", "path", configPath)

	if version := versionString(buildType, versionTag, gitCommit); version != "" {
		d.SetVersion(version)
	}

	if err = d.Initialize(); err != nil {
		named.Fatalw("Failed to initialize audiomixer", "error", err)
	}
}

// versionString is what the tray shows, empty for local builds. A tag wins over the commit
func versionString(build, tag, commit string) string {
	if build == "" {
		return ""
	}

	switch {
	case tag != "":
		return fmt.Sprintf("Version %s-%s", build, tag)
	case commit != "":
		return fmt.Sprintf("Version %s-%.7s", build, commit)
	default:
		return ""
	}
}
