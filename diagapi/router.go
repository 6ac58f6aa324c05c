// Package diagapi is the HTTP diagnostics surface for a running dnlinkd
// process: a read-only snapshot of each node's connection table and
// recent protocol errors, plus a session-gated endpoint for triggering a
// manual explicit service request from the bench. It is adapted from the
// gateway's REST API down to the handful of routes a link-layer
// diagnostics tool needs.
package diagapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/braboj/protocol-devicenet/cip"
	"github.com/braboj/protocol-devicenet/dnconfig"
	"github.com/braboj/protocol-devicenet/dnlink"
)

// service codes recognized by the manual-trigger handler as attribute
// shortcuts; any other code falls through to a raw ServiceRequest.
const (
	serviceGetAttrSingle = dnlink.SvcGetAttrSingle
	serviceSetAttrSingle = dnlink.SvcSetAttrSingle
)

// ErrorRecord is one logged protocol error, kept for the /errors feed.
type ErrorRecord struct {
	Node      string    `json:"node"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ConnectionView is the JSON shape of one connection-table row.
type ConnectionView struct {
	Instance       int    `json:"instance"`
	AllocChoice    int    `json:"alloc_choice"`
	AckSuppression bool   `json:"ack_suppression"`
	ProducedSize   int    `json:"produced_size"`
	ConsumedSize   int    `json:"consumed_size"`
	State          string `json:"state"`
}

// ServiceRequest is the POST /service request body for a manual explicit
// request.
type ServiceRequest struct {
	Node        string `json:"node"`
	ServiceCode byte   `json:"service_code"`
	ClassID     uint32 `json:"class_id"`
	InstanceID  uint32 `json:"instance_id"`
	Data        []byte `json:"data,omitempty"`
}

// ServiceResponse is the POST /service response body.
type ServiceResponse struct {
	Data  []byte `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server serves the diagnostics API over one or more configured nodes.
type Server struct {
	cfg   dnconfig.DiagAPIConfig
	auth  *sessionStore
	nodes map[string]*dnlink.Node

	mu     sync.Mutex
	errors []ErrorRecord
}

const maxErrorHistory = 200

// NewServer builds a Server exposing the given named nodes.
func NewServer(cfg dnconfig.DiagAPIConfig, nodes map[string]*dnlink.Node) *Server {
	return &Server{
		cfg:   cfg,
		auth:  newSessionStore(cfg.SessionSecret, cfg.AdminUser, cfg.AdminPassHash),
		nodes: nodes,
	}
}

// RecordError appends a protocol error to the in-memory ring buffer, the
// way a dnlink.EventHandler or dnlog sink would feed it live errors.
func (s *Server) RecordError(node string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorRecord{Node: node, Message: err.Error(), Timestamp: time.Now()})
	if len(s.errors) > maxErrorHistory {
		s.errors = s.errors[len(s.errors)-maxErrorHistory:]
	}
}

// Router builds the chi mux for this server.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/connections", s.handleConnections)
	r.Get("/errors", s.handleErrors)
	r.With(s.auth.requireAuth).Post("/service", s.handleService)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct{ Username, Password string }
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !s.auth.login(w, r, body.Username, body.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.logout(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	out := map[string][]ConnectionView{}
	for name, node := range s.nodes {
		views := make([]ConnectionView, 0)
		for instance, conn := range node.Connections() {
			views = append(views, ConnectionView{
				Instance:       instance,
				AllocChoice:    int(conn.AllocChoice),
				AckSuppression: conn.AckSuppression,
				ProducedSize:   conn.ProducedSize,
				ConsumedSize:   conn.ConsumedSize,
				State:          conn.State.String(),
			})
		}
		out[name] = views
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]ErrorRecord, len(s.errors))
	copy(out, s.errors)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	node, ok := s.nodes[req.Node]
	if !ok {
		http.Error(w, "unknown node", http.StatusNotFound)
		return
	}

	obj := cip.NewObject(node, req.ClassID, req.InstanceID)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		data []byte
		err  error
	)
	switch req.ServiceCode {
	case serviceGetAttrSingle:
		data, err = obj.GetAttribute(ctx, byte(req.InstanceID))
	case serviceSetAttrSingle:
		err = obj.SetAttribute(ctx, byte(req.InstanceID), req.Data)
	default:
		data, err = node.ServiceRequest(ctx, req.ServiceCode, req.ClassID, req.InstanceID, req.Data)
	}

	resp := ServiceResponse{Data: data}
	if err != nil {
		s.RecordError(req.Node, err)
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
