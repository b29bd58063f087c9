package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/report"
)

const msgMissingFields = "Missing required fields"

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Growwit Backend is live"})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req campaign.Request
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgMissingFields})
		return
	}

	sw := newStreamWriter(w)
	res, err := s.pipeline.Run(r.Context(), req, sw)
	fields := map[string]interface{}{
		"product": req.ProductName,
		"bytes":   sw.Bytes(),
	}
	if res != nil {
		fields["session"] = res.Session.ID
		fields["step"] = res.Step
	}
	if err != nil {
		s.fail(r.Context(), w, sw, err, fields)
		return
	}
	s.logger.Info("campaign streamed", fields)
}

func (s *Server) handleCraft(w http.ResponseWriter, r *http.Request) {
	var req campaign.CraftRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		msg := msgMissingFields
		if errors.Is(err, campaign.ErrInvalidRequest) {
			msg = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	sw := newStreamWriter(w)
	res, err := s.pipeline.Craft(r.Context(), req, sw)
	fields := map[string]interface{}{
		"product": req.ProductName,
		"bytes":   sw.Bytes(),
	}
	if res != nil {
		fields["session"] = res.Session.ID
		fields["posts"] = res.Framed
	}
	if err != nil {
		s.fail(r.Context(), w, sw, err, fields)
		return
	}
	s.logger.Info("posts crafted", fields)
}

// decode reads a JSON body. It answers 400 itself and returns false on
// failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return false
	}
	return true
}

// fail reports a pass error: JSON 500 before the first byte, an inline
// error marker after it. A client that went away gets nothing.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, sw *streamWriter, err error, fields map[string]interface{}) {
	fields["error"] = err.Error()
	if ctx.Err() != nil {
		s.logger.Warn("client disconnected", fields)
		return
	}
	s.logger.Error("generation failed", fields)
	if !sw.Started() {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	fmt.Fprintf(sw, "\n\n%s %s", report.ErrorTag, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
