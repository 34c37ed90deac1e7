package main

// cliConfig loads the small set of recognized options bluecorectl exposes
// on top of bluecore's defaults, merging an optional config file with
// command-line flags. Adapted from the teacher's ui/config/config.go
// (same koanf+hjson+cliflagv2 stack), trimmed to the handful of values a
// non-GUI demo needs.

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/hjson"
	"github.com/knadh/koanf/providers/cliflagv2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"
)

const configFileName = "bluecorectl.conf"

type cliValues struct {
	ScanDuration  int  `koanf:"scan-duration"`
	AutoTrust     bool `koanf:"auto-trust"`
	AutoReconnect bool `koanf:"auto-reconnect"`
}

// loadConfig merges an optional hjson config file under
// $XDG_CONFIG_HOME/bluecorectl (or ~/.config/bluecorectl) with the flags
// parsed on cliCtx. A missing or unreadable config file is not an error:
// its load error is discarded and the file contributes nothing.
func loadConfig(cliCtx *cli.Context) (cliValues, error) {
	var values cliValues

	k := koanf.New(".")

	cfgPath, err := configFilePath()
	if err == nil {
		_ = k.Load(file.Provider(cfgPath), hjson.Parser())
	}

	if err := k.Load(cliflagv2.Provider(cliCtx, "."), nil); err != nil {
		return values, err
	}

	if err := k.UnmarshalWithConf("", &values, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return values, err
	}

	return values, nil
}

func configFilePath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		dir = filepath.Join(home, ".config")
	}

	return filepath.Join(dir, "bluecorectl", configFileName), nil
}

func (v cliValues) scanDuration() time.Duration {
	return time.Duration(v.ScanDuration) * time.Second
}
