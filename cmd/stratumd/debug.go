// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/Kodylow/stratum/v1"
)

// sessionRegistry tracks the live server sessions so the debug HTTP
// endpoint can report on them. It is shared by every connection handler;
// the protocol core itself keeps no process-wide state.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*v1.ServerSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*v1.ServerSession)}
}

func (r *sessionRegistry) add(addr string, s *v1.ServerSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[addr] = s
}

func (r *sessionRegistry) remove(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, addr)
}

// sessionSummary is the JSON shape served at /debug/sessions.
type sessionSummary struct {
	RemoteAddr      string `json:"remote_addr"`
	ExtraNonce1     string `json:"extranonce1"`
	ExtraNonce2Size int    `json:"extranonce2_size"`
}

func (r *sessionRegistry) snapshot() []sessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sessionSummary, 0, len(r.sessions))
	for addr, s := range r.sessions {
		out = append(out, sessionSummary{
			RemoteAddr:      addr,
			ExtraNonce1:     s.ExtraNonce1().String(),
			ExtraNonce2Size: s.ExtraNonce2Size(),
		})
	}
	return out
}

// newDebugServer builds the read-only debug HTTP server exposing live
// session state.
func newDebugServer(addr string, reg *sessionRegistry) *http.Server {
	r := mux.NewRouter()
	r.HandleFunc("/debug/sessions", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reg.snapshot())
	}).Methods(http.MethodGet)

	return &http.Server{
		Addr:    addr,
		Handler: r,
	}
}
