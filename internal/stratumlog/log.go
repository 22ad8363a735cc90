// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stratumlog defines the package-level logger shared by the
// stratum packages, following the backend/subsystem convention used
// throughout the Eacred tool chain.
package stratumlog

import (
	"io"
	"os"

	"github.com/Eacred/slog"
)

// Log is the subsystem logger. Callers wire it up with UseLogger before
// any stratum package logs; until then it discards everything.
var Log = slog.Disabled

// Backend is the shared slog backend every subsystem logger is created
// from. It defaults to stdout and is replaced by SetLogWriter.
var Backend = slog.NewBackend(os.Stdout)

// UseLogger sets the package-level logger used by the stratum packages.
func UseLogger(logger slog.Logger) {
	Log = logger
}

// NewSubsystemLogger returns a new subsystem logger backed by Backend,
// tagged with the given subsystem short name (e.g. "STRV1", "STRV2").
func NewSubsystemLogger(subsystem string) slog.Logger {
	return Backend.Logger(subsystem)
}

// SetLogWriter redirects Backend to w, for use by cmd/stratumd wiring a
// rotating log file in place of stdout.
func SetLogWriter(w io.Writer) {
	Backend = slog.NewBackend(w)
}
