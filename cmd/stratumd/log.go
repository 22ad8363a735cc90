// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"

	"github.com/Kodylow/stratum/internal/stratumlog"
)

// logRotator rotates the stratumd log file on size, the same mechanism
// eacrd and eacrwallet use for their own daemon logs.
var logRotator *rotator.Rotator

// logWriter is an io.Writer that fans out to the rotator, satisfying the
// stratumlog.SetLogWriter contract.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// initLogRotator initializes the rotating file logger at logFile, mirroring
// the eacrd/eacrwallet initLogRotator helper: 10 MiB per file, rolled
// files left uncompressed, 3 rolled files retained.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("unable to create log directory: %v", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("unable to create log rotator: %v", err)
	}
	logRotator = r
	return nil
}

// useLogging wires stratumlog's package-level logger to write through
// logWriter, which tees to stdout and (once initialized) the rotator.
func useLogging(subsystem string) {
	stratumlog.SetLogWriter(logWriter{})
	stratumlog.UseLogger(stratumlog.NewSubsystemLogger(subsystem))
}
