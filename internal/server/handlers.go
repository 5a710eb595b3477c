package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"whimsy/internal/core"
	"whimsy/internal/gemini"
	"whimsy/internal/relay"
)

const serviceVersion = "1.0.0"

var serverStartTime = time.Now()

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse is the /api/health body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// StatusResponse is the /api/status body.
type StatusResponse struct {
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
	Models  StatusModels      `json:"models"`
}

// StatusModels lists the configured model identifiers.
type StatusModels struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

// WebhookResponse is the /api/webhook body.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "whimsy",
		Version: serviceVersion,
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	if s.pipeline.Ready() {
		checks["gemini"] = "configured"
	} else {
		checks["gemini"] = "missing api key"
	}
	if s.config.Relay.WebhookURL != "" {
		checks["webhook"] = "configured"
	} else {
		checks["webhook"] = "not configured"
	}

	s.respondJSON(w, http.StatusOK, StatusResponse{
		Version: serviceVersion,
		Uptime:  time.Since(serverStartTime).Round(time.Second).String(),
		Checks:  checks,
		Models: StatusModels{
			Text:   s.config.AI.Gemini.TextModel,
			Images: s.config.AI.Gemini.ImageModels,
		},
	})
}

// handleGenerate handles POST /api/generate. It runs the text generation and
// the five image generations concurrently, repairs the text output and
// returns the assembled bundle.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req core.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid generation request", err.Error())
		return
	}
	if req.ImageBase64 != "" {
		if _, err := core.ParseDataURL(req.ImageBase64); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid product image", err.Error())
			return
		}
	}
	if !s.pipeline.Ready() {
		s.respondError(w, http.StatusInternalServerError,
			"Server configuration error", "Gemini API key is not configured")
		return
	}

	s.log.Info("generation request accepted",
		"title", req.Title, "contentType", string(req.ContentType))

	bundle, err := s.pipeline.Run(r.Context(), &req)
	if err != nil {
		s.respondGenerationError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, bundle)
}

// respondGenerationError maps text generation failures onto HTTP statuses.
func (s *Server) respondGenerationError(w http.ResponseWriter, err error) {
	var apiErr *gemini.APIError
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		s.respondError(w, http.StatusInternalServerError,
			"Server configuration error", "Gemini API key is not configured")
	case errors.As(err, &apiErr):
		s.respondError(w, http.StatusBadGateway, "Upstream model error", apiErr.Message)
	default:
		s.respondError(w, http.StatusInternalServerError, "Content generation failed", err.Error())
	}
}

// handleWebhook handles POST /api/webhook. Downstream rejections are
// mirrored back with the downstream status code so the caller can tell a
// workflow problem from a relay problem.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req core.RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Product.Title == "" || req.Product.URL == "" {
		s.respondError(w, http.StatusBadRequest,
			"Invalid relay request", "product title and url are required")
		return
	}

	_, err := s.relay.Process(r.Context(), &req)
	if err != nil {
		var dsErr *relay.DownstreamError
		if errors.As(err, &dsErr) {
			s.respondJSON(w, dsErr.StatusCode, WebhookResponse{
				Success: false,
				Message: "Downstream workflow rejected the payload",
				Detail:  dsErr.Detail,
			})
			return
		}
		s.respondJSON(w, http.StatusInternalServerError, WebhookResponse{
			Success: false,
			Message: "Webhook relay failed",
			Detail:  err.Error(),
		})
		return
	}

	s.respondJSON(w, http.StatusOK, WebhookResponse{
		Success: true,
		Message: "Content relayed to automation workflow",
	})
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes a uniform JSON error body
func (s *Server) respondError(w http.ResponseWriter, status int, msg, detail string) {
	s.respondJSON(w, status, ErrorResponse{Error: msg, Detail: detail})
}
