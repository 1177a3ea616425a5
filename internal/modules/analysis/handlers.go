package analysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/domain"
	"github.com/quantfolio/pulse/internal/modules/charts"
)

// Handlers exposes the analysis pipeline over HTTP.
type Handlers struct {
	service *Service
	charts  *charts.Service
	log     zerolog.Logger
}

// NewHandlers creates the analysis HTTP handlers.
func NewHandlers(service *Service, chartSvc *charts.Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		charts:  chartSvc,
		log:     log.With().Str("component", "analysis_handlers").Logger(),
	}
}

// Routes mounts the analysis endpoints on a chi router.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/tickers", h.HandleListTickers)
	r.Get("/metrics", h.HandleMetrics)
	r.Get("/charts/prices", h.HandlePriceChart)
	r.Get("/charts/cumulative", h.HandleCumulativeChart)
}

// HandleListTickers returns the tickers available for selection.
func (h *Handlers) HandleListTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.service.Tickers()
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"tickers": tickers})
}

// HandleMetrics runs the pipeline and returns the comparison records.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	result, err := h.service.Run(req)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandlePriceChart returns aligned close-price lines, optionally with an
// SMA overlay (?sma=20).
func (h *Handlers) HandlePriceChart(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	smaPeriod := 0
	if v := r.URL.Query().Get("sma"); v != "" {
		smaPeriod, err = strconv.Atoi(v)
		if err != nil || smaPeriod < 0 {
			h.writeErr(w, &domain.ConfigError{Field: "sma", Reason: "sma must be a non-negative integer"})
			return
		}
	}

	result, err := h.service.Run(req)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"series": h.charts.PriceSeries(result.Matrix, smaPeriod),
	})
}

// HandleCumulativeChart returns cumulative-return lines per column.
func (h *Handlers) HandleCumulativeChart(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	result, err := h.service.Run(req)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"series": h.charts.CumulativeSeries(result.Returns),
	})
}

// parseRequest reads the selection from query parameters: tickers as a
// comma-separated list, start/end as 2006-01-02 dates, or range=1Y style
// shorthands. Empty values fall through to the service defaults.
func parseRequest(r *http.Request) (Request, error) {
	q := r.URL.Query()
	var req Request

	if v := q.Get("tickers"); v != "" {
		for _, t := range strings.Split(v, ",") {
			req.Tickers = append(req.Tickers, strings.TrimSpace(t))
		}
	}

	for _, f := range []struct {
		param string
		dst   *time.Time
	}{
		{"start", &req.Start},
		{"end", &req.End},
	} {
		v := q.Get(f.param)
		if v == "" {
			continue
		}
		d, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return req, &domain.ConfigError{Field: f.param, Reason: "want a date like " + domain.DateLayout}
		}
		*f.dst = d
	}

	if v := q.Get("range"); v != "" && req.Start.IsZero() {
		if start, ok := charts.ParseDateRange(v); ok {
			req.Start = domain.Day(start)
		}
	}

	return req, nil
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErr maps domain errors onto HTTP statuses: bad selections are the
// caller's fault (400), clean windows with no usable data are 422, and
// anything else is a 500.
func (h *Handlers) writeErr(w http.ResponseWriter, err error) {
	var cfgErr *domain.ConfigError
	var alignErr *domain.AlignmentError
	var schemaErr *domain.SchemaError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &cfgErr):
		status = http.StatusBadRequest
	case errors.As(err, &alignErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &schemaErr):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Analysis request failed")
	} else {
		h.log.Warn().Err(err).Msg("Analysis request rejected")
	}

	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
