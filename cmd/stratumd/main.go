// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command stratumd is a demonstration binary wiring the v1 protocol core
// (package v1) to concrete collaborators: a bbolt-backed extranonce1
// allocator, a golang.org/x/time/rate per-IP limiter, a rotating log file,
// and a read-only gorilla/mux debug endpoint. It does not implement the
// mining-work generation algorithm (coinbase construction, merkle root,
// block header hashing); see cmd/stratumd/worksource.go.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	bolt "github.com/coreos/bbolt"

	"github.com/Kodylow/stratum/internal/stratumlimit"
	"github.com/Kodylow/stratum/internal/stratumlog"
	"github.com/Kodylow/stratum/internal/stratumnonce"
	"github.com/Kodylow/stratum/v1"
)

func run() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	if !cfg.NoFileLogging {
		if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
			return err
		}
	}
	useLogging("STRV1")

	dbPath := filepath.Join(cfg.DataDir, "stratumd.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("unable to open database: %v", err)
	}
	defer db.Close()

	allocator := stratumnonce.NewBoltAllocator(db)
	sizePolicy := v1.ConstExtraNonce2Size(cfg.ExtraNonce2Size)
	limiter := stratumlimit.NewIPLimiter(cfg.RateLimit, cfg.RateBurst)
	registry := newSessionRegistry()

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %v", cfg.Listen, err)
	}
	defer listener.Close()
	stratumlog.Log.Infof("listening for stratum v1 connections on %s", cfg.Listen)

	srv := newServer(listener, allocator, sizePolicy, limiter, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.run(ctx)

	var debugSrv *http.Server
	if cfg.DebugListen != "" {
		debugSrv = newDebugServer(cfg.DebugListen, registry)
		go func() {
			stratumlog.Log.Infof("serving debug session snapshot on http://%s/debug/sessions", cfg.DebugListen)
			if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				stratumlog.Log.Debugf("debug server stopped: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	cancel()
	if debugSrv != nil {
		debugSrv.Close()
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
