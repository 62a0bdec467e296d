package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/middleware"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/models"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/response"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/demand"
)

// maxBodyBytes caps prediction request bodies.
const maxBodyBytes = 64 << 10

// DemandService is the subset of demand.Service used by DemandHandler.
type DemandService interface {
	Loaded() bool
	PredictJSON(ctx context.Context, body []byte) (*demand.Prediction, error)
	Heatmap(ctx context.Context) (*demand.Heatmap, error)
}

// DemandHandler handles prediction and heatmap endpoints.
type DemandHandler struct {
	service DemandService
	logger  zerolog.Logger
}

// NewDemandHandler creates a new DemandHandler.
func NewDemandHandler(service DemandService, logger zerolog.Logger) *DemandHandler {
	return &DemandHandler{service: service, logger: logger}
}

// RequireModel answers 503 while no model is loaded, before the request
// body is read or its content type checked.
func (h *DemandHandler) RequireModel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.service.Loaded() {
			h.writeError(w, r, demand.ErrModelNotLoaded)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PredictDemand handles POST /predict-demand.
func (h *DemandHandler) PredictDemand(w http.ResponseWriter, r *http.Request) {
	if !h.service.Loaded() {
		h.writeError(w, r, demand.ErrModelNotLoaded)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.InvalidBody(w, r, "request body too large")
			return
		}
		response.InvalidBody(w, r, "could not read request body")
		return
	}

	p, err := h.service.PredictJSON(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toPredictResponse(p))
}

// PredictUsage handles GET /predict-demand with a description of the POST body.
func (h *DemandHandler) PredictUsage(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.PredictUsage{
		Message: "This is a prediction endpoint. Please use POST to get a prediction.",
		Method:  http.MethodPost,
		Fields:  demand.RequiredFields,
		Example: models.PredictInputs{
			Origin:      "Chennai",
			Destination: "Bangalore",
			DayOfWeek:   "Friday",
			Hour:        18,
			Weather:     "sunny",
		},
	})
}

// DemandHeatmap handles GET /demand-heatmap.
func (h *DemandHandler) DemandHeatmap(w http.ResponseWriter, r *http.Request) {
	hm, err := h.service.Heatmap(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entries := make([]models.HeatmapEntry, len(hm.Entries))
	for i, e := range hm.Entries {
		entries[i] = models.HeatmapEntry{
			Date:        models.Date(e.Date),
			Day:         e.Day,
			Route:       e.Route.String(),
			Hour:        e.Hour,
			Weather:     e.Weather,
			Demand:      e.Demand,
			DemandLevel: string(e.Level),
		}
	}

	response.JSON(w, r, http.StatusOK, models.HeatmapResponse{
		Status:       "success",
		TotalEntries: len(entries),
		GeneratedAt:  models.Timestamp(hm.GeneratedAt),
		Heatmap:      entries,
	})
}

// writeError maps demand errors to problem responses.
func (h *DemandHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *demand.ValidationError
	var internal *demand.InternalError

	switch {
	case errors.Is(err, demand.ErrModelNotLoaded):
		response.ModelNotLoaded(w, r, "Model not loaded. Please train the model first.")
	case errors.Is(err, demand.ErrBadJSON):
		response.InvalidBody(w, r, err.Error())
	case errors.As(err, &validation):
		fields := make([]models.FieldError, len(validation.Fields))
		for i, f := range validation.Fields {
			fields[i] = models.FieldError{Field: f.Field, Message: f.Message, Code: f.Code}
		}
		response.BadRequest(w, r, validation.Message, fields)
	case errors.As(err, &internal):
		response.InternalError(w, r, internal.Op+" failed")
	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("unhandled demand error")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

func toPredictResponse(p *demand.Prediction) models.PredictDemandResponse {
	return models.PredictDemandResponse{
		PredictedDemand: p.PredictedDemand,
		Confidence:      p.Confidence,
		DemandLevel:     string(p.Level),
		Route:           p.Route.String(),
		Time:            p.Time,
		Recommendation:  p.Recommendation,
		Inputs: models.PredictInputs{
			Origin:      p.Inputs.Origin,
			Destination: p.Inputs.Destination,
			DayOfWeek:   p.Inputs.DayOfWeek,
			Hour:        p.Inputs.Hour,
			Weather:     p.Inputs.Weather,
		},
	}
}
