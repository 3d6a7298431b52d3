package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jpalmerr/funnel/internal/store"
	"github.com/jpalmerr/funnel/params"
)

type captureRequest struct {
	Href string `json:"href"`
}

type paramsResponse struct {
	Params params.Set `json:"params"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write json response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleParams returns the session's parameters merged with any carried by
// the request itself. Nothing is persisted.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	set := s.paramStore(r).ReadAll(r.URL).Compact()
	s.writeJSON(w, http.StatusOK, paramsResponse{Params: set})
}

// handleCapture merges the parameters of a browser-reported address into the
// session. Browsers never send the fragment, so this is the only way
// fragment-borne parameters reach the server.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	body := http.MaxBytesReader(w, r.Body, maxCaptureBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := url.Parse(req.Href)
	if err != nil || req.Href == "" {
		s.writeError(w, http.StatusBadRequest, "invalid href")
		return
	}

	ps := s.paramStore(r)
	fromAddress := params.FromAddress(u)
	all := ps.ReadPersisted().Merge(fromAddress)
	ps.Persist(all)

	if n := len(fromAddress); n > 0 {
		s.metrics.ParamsCaptured.WithLabelValues("capture").Add(float64(n))
	}
	s.writeJSON(w, http.StatusOK, paramsResponse{Params: all.Compact()})
}

func (s *Server) handleGetCustomization(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.loadContent(r.Context()))
}

// handlePutCustomization replaces the whole customization document.
func (s *Server) handlePutCustomization(w http.ResponseWriter, r *http.Request) {
	var c store.Customization
	dec := json.NewDecoder(io.LimitReader(r.Body, maxCaptureBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid customization: %v", err))
		return
	}
	if err := c.Validate(); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.content.Save(r.Context(), c); err != nil {
		if errors.Is(err, store.ErrClosed) {
			s.writeError(w, http.StatusServiceUnavailable, "store is closed")
			return
		}
		s.logger.Error("failed to save customization data", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save customization")
		return
	}

	s.logger.Info("customization saved")
	s.writeJSON(w, http.StatusOK, c)
}

// handleSSE streams customization changes via Server-Sent Events.
//
// The current document is sent first, then one event per Save or Reset.
// The handler uses write deadlines so a slow or disconnected client cannot
// block it past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.content.Subscribe()
	defer s.content.Unsubscribe(ch)

	initial, err := json.Marshal(s.loadContent(r.Context()))
	if err == nil {
		if err := writeAndFlush(initial); err != nil {
			return
		}
	}

	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
			// reload so a reset streams the configured defaults
			data, err := json.Marshal(s.loadContent(r.Context()))
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown via BaseContext
			return
		}
	}
}
