package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/extract"
	"github.com/governable/piiscan/internal/report"
	"github.com/governable/piiscan/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

type textRequest struct {
	Text     string   `json:"text"`
	Entities []string `json:"entities"`
	Mode     string   `json:"mode"`
	Language string   `json:"language"`
	MinScore *float64 `json:"min_score"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// splitEntities parses a comma-separated allowlist.
func splitEntities(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func (s *Server) scanOptions(entities []string, language string, minScore *float64) engine.ScanOptions {
	so := engine.ScanOptions{Language: language, MinScore: s.cfg.MinScore}
	// upper-cased the way the statistical detector spells them
	for _, e := range entities {
		so.Entities = append(so.Entities, strings.ToUpper(strings.TrimSpace(e)))
	}
	if len(so.Entities) == 0 {
		so.Entities = s.cfg.Entities
	}
	if so.Language == "" {
		so.Language = s.cfg.Language
	}
	if minScore != nil {
		so.MinScore = *minScore
	}
	return so
}

func (s *Server) handleScanFile(w http.ResponseWriter, r *http.Request) {
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer func() { _ = file.Close() }()
	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	so := s.scanOptions(splitEntities(r.FormValue("entities")), r.FormValue("language"), nil)
	lines := strings.EqualFold(r.FormValue("mode"), "lines")
	rep, err := s.engine.ScanDocument(r.Context(), hdr.Filename, raw, so, lines)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logScan(r, hdr.Filename, len(raw), rep)
	writeJSON(w, http.StatusOK, report.NewFileJSON(hdr.Filename, rep))
}

func (s *Server) handleScanText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "body exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MinScore != nil && (*req.MinScore < 0 || *req.MinScore > 1) {
		writeError(w, http.StatusBadRequest, "min_score must be within [0,1]")
		return
	}
	so := s.scanOptions(req.Entities, req.Language, req.MinScore)
	var (
		rep types.Report
		err error
	)
	if strings.EqualFold(req.Mode, "lines") {
		rep, err = s.engine.ScanLines(r.Context(), req.Text, so)
	} else {
		rep, err = s.engine.Scan(r.Context(), req.Text, so)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logScan(r, "", len(req.Text), rep)
	writeJSON(w, http.StatusOK, report.NewFileJSON("", rep))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.WithRequestID(requestID(r.Context()))
	var ue *extract.UnsupportedFormatError
	var de *engine.DetectionError
	switch {
	case errors.As(err, &ue):
		writeError(w, http.StatusBadRequest, ue.Error())
	case errors.As(err, &de):
		log.Error("detection failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, de.Error())
	case errors.Is(err, context.Canceled):
		log.Info("client went away", zap.Error(err))
	default:
		log.Error("scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan failed")
	}
}

func (s *Server) logScan(r *http.Request, name string, size int, rep types.Report) {
	s.logger.WithRequestID(requestID(r.Context())).Debug("scan served",
		zap.String("filename", name),
		zap.Int("bytes", size),
		zap.Int("findings", len(rep.Findings)),
		zap.Bool("degraded", rep.Degraded),
	)
}

type healthResponse struct {
	Status      string `json:"status"`
	Statistical string `json:"statistical"`
	Rules       int    `json:"rules"`
	Timestamp   string `json:"timestamp"`
	Error       string `json:"error,omitempty"`
}

// handleHealth always answers 200 while the process is serving; a failing
// statistical detector is reported as degraded, since scans still succeed.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "healthy",
		Statistical: "disabled",
		Rules:       s.engine.Rules().Len(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if s.engine.Statistical() {
		resp.Statistical = "up"
		if s.health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := s.health.Health(ctx); err != nil {
				resp.Status = "degraded"
				resp.Statistical = "down"
				resp.Error = err.Error()
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type rulesResponse struct {
	Source      string   `json:"source"`
	Rules       []string `json:"rules"`
	Statistical bool     `json:"statistical"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rs := s.engine.Rules()
	writeJSON(w, http.StatusOK, rulesResponse{Source: rs.Source(), Rules: rs.Labels(), Statistical: s.engine.Statistical()})
}
