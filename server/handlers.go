package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hupe1980/agentgrid/core"
)

// maxRequestBodySize limits the size of incoming request bodies (4MB).
const maxRequestBodySize = 4 * 1024 * 1024

// startRunResponse is the body of a successful POST /runtime/start.
type startRunResponse struct {
	RunID string `json:"run_id"`
}

// signaturesResponse is the body of GET /runtime/signatures.
type signaturesResponse struct {
	RunID      string            `json:"run_id"`
	Signatures map[string]string `json:"signatures"`
}

// invokeRequest is the body of POST /runtime/agent/{id}/invoke.
type invokeRequest struct {
	RunID string `json:"run_id"`
}

// invokeResponse is the body of a successful manual invocation.
type invokeResponse struct {
	RunID      string `json:"run_id"`
	NodeID     string `json:"node_id"`
	Output     string `json:"output"`
	Signature  string `json:"signature,omitempty"`
	TokensUsed int    `json:"tokens_used"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// handleStart handles POST /runtime/start: a WorkflowConfig in, a run id out.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, s, err)
		return
	}

	var cfg core.WorkflowConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid workflow config: %v", err)})
		return
	}

	runID, err := s.engine.StartWorkflow(r.Context(), cfg)
	if err != nil {
		writeError(w, s, err)
		return
	}

	s.logger.Info("run accepted", "run_id", runID, "workflow_id", cfg.ID)
	writeJSON(w, http.StatusCreated, startRunResponse{RunID: runID})
}

// handleState handles GET /runtime/state?run_id=.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "run_id query parameter is required"})
		return
	}

	snap, err := s.engine.State(runID)
	if err != nil {
		writeError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleSignatures handles GET /runtime/signatures?run_id=.
func (s *Server) handleSignatures(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "run_id query parameter is required"})
		return
	}

	sigs, err := s.engine.Signatures(runID)
	if err != nil {
		writeError(w, s, err)
		return
	}
	if sigs == nil {
		sigs = map[string]string{}
	}
	writeJSON(w, http.StatusOK, signaturesResponse{RunID: runID, Signatures: sigs})
}

// handleInvoke handles POST /runtime/agent/{id}/invoke: a manual single-node
// trigger honoring the same eligibility guard as the orchestration loop.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	nodeID := r.PathValue("id")
	if nodeID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "agent id is required"})
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, s, err)
		return
	}

	var req invokeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.RunID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "run_id is required"})
		return
	}

	res, err := s.engine.InvokeNode(r.Context(), req.RunID, nodeID)
	if err != nil {
		writeError(w, s, err)
		return
	}

	writeJSON(w, http.StatusOK, invokeResponse{
		RunID:      req.RunID,
		NodeID:     nodeID,
		Output:     string(res.Output),
		Signature:  res.Signature,
		TokensUsed: res.TokensUsed,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readBody reads a size-limited request body.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxRequestBodySize {
		return nil, errBodyTooLarge
	}
	return body, nil
}

var errBodyTooLarge = errors.New("request body too large")

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, s *Server, err error) {
	var (
		gerr *core.GraphError
		terr *core.InvalidTransitionError
		merr *core.MissingSignatureError
		verr *core.InvocationError
	)

	switch {
	case errors.As(err, &gerr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: gerr.Error(), Kind: string(gerr.Kind)})
	case errors.Is(err, core.ErrRunNotFound), errors.Is(err, core.ErrNodeNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &terr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: terr.Error(), Kind: "invalid_transition"})
	case errors.As(err, &merr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: merr.Error(), Kind: "missing_signature"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: verr.Error(), Kind: "invocation_error"})
	case errors.Is(err, errBodyTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
