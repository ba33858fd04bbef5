// Package handlers provides HTTP handlers for blend optimization.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/blendopt/internal/modules/blend"
	"github.com/aristath/blendopt/internal/modules/prices"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// MaxSteps bounds the grid size accepted from API clients
const MaxSteps = 100001

// maxBodyBytes bounds optimize request bodies (roughly 500k observations)
const maxBodyBytes = 16 << 20

const contentTypeMsgpack = "application/msgpack"

// Refresher recomputes the cached result on demand
type Refresher interface {
	RunContext(ctx context.Context) (blend.Snapshot, error)
}

// Handler handles blend optimization HTTP requests
type Handler struct {
	cache        *blend.ResultCache
	refresher    Refresher
	defaultSteps int
	workers      int
	log          zerolog.Logger
}

// NewHandler creates a new blend handler. refresher may be nil when no price
// source is scheduled.
func NewHandler(cache *blend.ResultCache, refresher Refresher, defaultSteps, workers int, log zerolog.Logger) *Handler {
	if defaultSteps < 2 {
		defaultSteps = blend.DefaultSteps
	}
	return &Handler{
		cache:        cache,
		refresher:    refresher,
		defaultSteps: defaultSteps,
		workers:      workers,
		log:          log.With().Str("handler", "blend").Logger(),
	}
}

// OptimizeRequest is the body of POST /api/blend/optimize
type OptimizeRequest struct {
	PricesA        []float64 `json:"prices_a"`
	PricesB        []float64 `json:"prices_b"`
	Steps          int       `json:"steps,omitempty"`
	IncludeSurface bool      `json:"include_surface,omitempty"`
}

// OptimizeData is the computed part of an optimize response
type OptimizeData struct {
	Weight      float64       `json:"weight" msgpack:"weight"`
	ShareAPct   float64       `json:"share_a_pct" msgpack:"share_a_pct"`
	ShareBPct   float64       `json:"share_b_pct" msgpack:"share_b_pct"`
	MinVariance float64       `json:"min_variance" msgpack:"min_variance"`
	Steps       int           `json:"steps" msgpack:"steps"`
	Periods     int           `json:"periods" msgpack:"periods"`
	Surface     []blend.Point `json:"surface,omitempty" msgpack:"surface,omitempty"`
}

// Metadata accompanies every successful response
type Metadata struct {
	RunID     string `json:"run_id,omitempty" msgpack:"run_id,omitempty"`
	Timestamp string `json:"timestamp" msgpack:"timestamp"`
}

// Envelope wraps response payloads
type Envelope struct {
	Data     interface{} `json:"data" msgpack:"data"`
	Metadata Metadata    `json:"metadata" msgpack:"metadata"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error string `json:"error" msgpack:"error"`
}

// HandleOptimize handles POST /api/blend/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	steps := req.Steps
	if steps == 0 {
		steps = h.defaultSteps
	}
	if steps > MaxSteps {
		h.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("steps exceeds maximum of %d", MaxSteps))
		return
	}

	optimizer, err := blend.NewOptimizer(req.PricesA, req.PricesB)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var result blend.Result
	if h.workers > 0 {
		result, err = optimizer.FindOptimalWeightConcurrent(r.Context(), steps, h.workers)
	} else {
		result, err = optimizer.FindOptimalWeight(steps)
	}
	if err != nil {
		if errors.Is(err, blend.ErrInvalidInput) {
			h.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Optimization failed")
		h.writeError(w, r, http.StatusInternalServerError, "optimization failed")
		return
	}

	if !isFinite(result) {
		h.writeError(w, r, http.StatusUnprocessableEntity, errNonFinite)
		return
	}

	data := OptimizeData{
		Weight:      result.Weight,
		ShareAPct:   result.ShareA(),
		ShareBPct:   result.ShareB(),
		MinVariance: result.MinVariance,
		Steps:       steps,
		Periods:     optimizer.Len(),
	}
	if req.IncludeSurface {
		data.Surface, err = optimizer.Surface(steps)
		if err != nil {
			if errors.Is(err, blend.ErrInvalidInput) {
				h.writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			h.log.Error().Err(err).Msg("Surface computation failed")
			h.writeError(w, r, http.StatusInternalServerError, "optimization failed")
			return
		}
	}

	runID := uuid.New().String()
	h.log.Debug().
		Str("run_id", runID).
		Int("periods", data.Periods).
		Int("steps", steps).
		Float64("weight", result.Weight).
		Msg("Optimized blend")

	h.writeResponse(w, r, http.StatusOK, Envelope{
		Data:     data,
		Metadata: Metadata{RunID: runID, Timestamp: time.Now().Format(time.RFC3339)},
	})
}

// HandleGetLatest handles GET /api/blend/latest
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.cache.Latest()
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "no blend has been computed yet")
		return
	}
	if !isFinite(snapshot.Result) {
		h.writeError(w, r, http.StatusUnprocessableEntity, errNonFinite)
		return
	}

	h.writeResponse(w, r, http.StatusOK, Envelope{
		Data:     snapshot,
		Metadata: Metadata{RunID: snapshot.RunID, Timestamp: time.Now().Format(time.RFC3339)},
	})
}

// HandleRefresh handles POST /api/blend/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "no price source configured for refresh")
		return
	}

	snapshot, err := h.refresher.RunContext(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Blend refresh failed")
		switch {
		case errors.Is(err, prices.ErrSourceNotFound):
			h.writeError(w, r, http.StatusNotFound, err.Error())
		case errors.Is(err, blend.ErrInvalidInput), isDataError(err):
			h.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		default:
			h.writeError(w, r, http.StatusInternalServerError, "refresh failed")
		}
		return
	}
	if !isFinite(snapshot.Result) {
		h.log.Warn().Str("run_id", snapshot.RunID).Msg("Refreshed blend has non-finite variance")
		h.writeError(w, r, http.StatusUnprocessableEntity, errNonFinite)
		return
	}

	h.writeResponse(w, r, http.StatusOK, Envelope{
		Data:     snapshot,
		Metadata: Metadata{RunID: snapshot.RunID, Timestamp: time.Now().Format(time.RFC3339)},
	})
}

const errNonFinite = "variance is not finite for the supplied prices"

// isFinite reports whether result can be encoded; JSON has no NaN or Inf
func isFinite(result blend.Result) bool {
	return !math.IsNaN(result.MinVariance) && !math.IsInf(result.MinVariance, 0) &&
		!math.IsNaN(result.Weight) && !math.IsInf(result.Weight, 0)
}

func isDataError(err error) bool {
	var parseErr *prices.ParseError
	return errors.As(err, &parseErr) ||
		errors.Is(err, prices.ErrMissingColumn) ||
		errors.Is(err, prices.ErrNoRows) ||
		errors.Is(err, prices.ErrLengthMismatch)
}

func wantsMsgpack(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, contentTypeMsgpack) || strings.Contains(accept, "application/x-msgpack")
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeResponse(w, r, status, ErrorResponse{Error: msg})
}

// writeResponse encodes data as msgpack when the client asks for it, JSON otherwise
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if wantsMsgpack(r) {
		body, err := msgpack.Marshal(data)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to encode msgpack response")
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		if _, err := w.Write(body); err != nil {
			h.log.Error().Err(err).Msg("Failed to write msgpack response")
		}
		return
	}

	h.writeJSON(w, status, data)
}

// writeJSON writes a JSON response. The body is encoded before the status is
// sent so an encoding failure still reaches the client as a 500.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log.Error().Err(err).Msg("Failed to write JSON response")
	}
}
