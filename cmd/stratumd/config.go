// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "stratumd.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "stratumd.log"
	defaultListen         = "0.0.0.0:3333"
	defaultDebugListen    = "127.0.0.1:3334"
	defaultExtraNonce2Sz  = 4
	defaultRateLimit      = 5.0
	defaultRateBurst      = 10
)

var (
	defaultHomeDir    = appDataDir("stratumd")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for stratumd, the example
// binary demonstrating the v1 protocol core wired to its collaborators.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"Directory to store the extranonce1 allocator database"`
	LogDir     string `long:"logdir" description:"Directory to log output"`

	Listen      string `long:"listen" description:"Address to listen for stratum v1 connections on"`
	DebugListen string `long:"debuglisten" description:"Address to serve the /debug/sessions endpoint on; empty disables it"`

	ExtraNonce2Size int     `long:"extranonce2size" description:"extranonce2 byte length advertised to subscribing clients"`
	RateLimit       float64 `long:"ratelimit" description:"Requests per second allowed per client IP"`
	RateBurst       int     `long:"rateburst" description:"Burst size for the per-IP rate limiter"`

	NoFileLogging bool `long:"nofilelogging" description:"Disable logging to a rotating log file"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir := filepath.Dir(defaultHomeDir)
		path = filepath.Join(homeDir, path[1:])
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// loadConfig reads the stratumd.conf file (if present) and then applies any
// command line flags, following the two-pass pre-parse/parse convention used
// throughout the Eacred tool chain: a first pass over the command line
// locates -C/--configfile, then the ini file is applied and the command
// line is parsed again on top of it so command line flags always win.
func loadConfig() (*config, []string, error) {
	cfg := config{
		ConfigFile:      defaultConfigFile,
		DataDir:         defaultDataDir,
		LogDir:          defaultLogDir,
		Listen:          defaultListen,
		DebugListen:     defaultDebugListen,
		ExtraNonce2Size: defaultExtraNonce2Sz,
		RateLimit:       defaultRateLimit,
		RateBurst:       defaultRateBurst,
	}

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		parser := flags.NewParser(&cfg, flags.Default)
		err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			if _, ok := err.(*os.PathError); !ok {
				return nil, nil, fmt.Errorf("error parsing config file: %v", err)
			}
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("unable to create data directory: %v", err)
	}
	if !cfg.NoFileLogging {
		if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
			return nil, nil, fmt.Errorf("unable to create log directory: %v", err)
		}
	}

	return &cfg, remainingArgs, nil
}

// appDataDir mirrors btcsuite/eacrd's AppDataDir helper: it returns an
// OS-appropriate per-user application data directory for name, without
// pulling in the whole btcutil dependency tree for one helper.
func appDataDir(name string) string {
	if name == "" || name == "." {
		return "."
	}
	name = "." + name

	var appData string
	switch runtime.GOOS {
	case "windows":
		appData = os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
	default:
		home, err := os.UserHomeDir()
		if err == nil {
			appData = home
		}
	}
	if appData == "" {
		return name
	}
	return filepath.Join(appData, name)
}
