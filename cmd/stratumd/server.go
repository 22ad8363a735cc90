// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/Kodylow/stratum/internal/stratumerr"
	"github.com/Kodylow/stratum/internal/stratumlimit"
	"github.com/Kodylow/stratum/internal/stratumlog"
	"github.com/Kodylow/stratum/internal/stratumnonce"
	"github.com/Kodylow/stratum/v1"
)

// server accepts v1 connections and runs one ServerSession per connection,
// one goroutine per client.
type server struct {
	listener  net.Listener
	allocator v1.ExtraNonce1Allocator
	sizeCfg   v1.ExtraNonce2SizePolicy
	acceptor  v1.SubmissionAcceptor
	limiter   *stratumlimit.IPLimiter
	registry  *sessionRegistry
	work      *demoWorkSource
}

func newServer(listener net.Listener, allocator *stratumnonce.BoltAllocator, sizeCfg v1.ExtraNonce2SizePolicy, limiter *stratumlimit.IPLimiter, reg *sessionRegistry) *server {
	return &server{
		listener:  listener,
		allocator: allocator,
		sizeCfg:   sizeCfg,
		acceptor:  demoAcceptor{},
		limiter:   limiter,
		registry:  reg,
		work:      &demoWorkSource{},
	}
}

// run accepts connections until the listener is closed.
func (s *server) run(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				stratumlog.Log.Errorf("accept error: %v", err)
				return
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn drives one ServerSession for the life of conn: it reads
// newline-delimited json-rpc messages, consults the per-IP rate limiter
// before handling each one, and writes back whatever HandleMessage
// produces. A background goroutine periodically pushes a fresh job.
func (s *server) handleConn(ctx context.Context, conn net.Conn) {
	addr := conn.RemoteAddr().String()
	defer conn.Close()

	session := v1.NewServerSession(s.allocator, s.sizeCfg, s.acceptor)
	s.registry.add(addr, session)
	defer s.registry.remove(addr)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.notifyLoop(connCtx, conn, session)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		ip, _, _ := net.SplitHostPort(addr)
		if !s.limiter.WithinLimit(ip, 0) {
			stratumlog.Log.Debugf("%s: rate limit exceeded", addr)
			continue
		}

		resp, err := session.HandleMessage(connCtx, append([]byte(nil), line...))
		if err != nil {
			if stratumerr.IsError(err, stratumerr.ErrInvalidSubmission) {
				stratumlog.Log.Debugf("%s: rejected submission: %v", addr, err)
				continue
			}
			stratumlog.Log.Errorf("%s: %v", addr, err)
			return
		}
		if resp == nil {
			continue
		}
		if err := writeMessage(conn, resp); err != nil {
			stratumlog.Log.Errorf("%s: write error: %v", addr, err)
			return
		}
	}
}

// notifyLoop pushes a new job to the client every 30 seconds, the example
// binary's stand-in for a chain backend noticing new work.
func (s *server) notifyLoop(ctx context.Context, conn net.Conn, session *v1.ServerSession) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobID, job := s.work.nextJob()
			if err := writeMessage(conn, session.Notify(jobID, job)); err != nil {
				stratumlog.Log.Errorf("notify write error: %v", err)
				return
			}
		}
	}
}

// writeMessage marshals msg as a single json-rpc line and writes it,
// newline-terminated, to conn.
func writeMessage(conn net.Conn, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = conn.Write(b)
	return err
}
