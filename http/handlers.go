package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"screenapi/ml"
	"screenapi/prediction"
)

// API holds the read-only state shared by all handlers.
type API struct {
	service *prediction.Service
	store   *ml.Store
	strict  bool
	logger  *zap.Logger
}

func NewAPI(service *prediction.Service, store *ml.Store, strict bool, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{service: service, store: store, strict: strict, logger: logger}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.handleHealth)
	for _, slot := range ml.Slots {
		mux.HandleFunc("POST /predict/"+string(slot), a.handlePredict(slot))
	}
}

type healthResponse struct {
	Status       string           `json:"status"`
	ModelsLoaded bool             `json:"models_loaded"`
	Models       map[ml.Slot]bool `json:"models"`
}

type predictRequest struct {
	Responses ml.Responses `json:"responses"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "healthy",
		ModelsLoaded: a.store.Loaded(),
		Models:       a.store.Status(),
	})
}

func (a *API) handlePredict(slot ml.Slot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.fail(w, r, slot, decodeStatus(err), fmt.Errorf("invalid request body: %w", err))
			return
		}
		if a.strict {
			if err := ml.Validate(req.Responses); err != nil {
				a.fail(w, r, slot, http.StatusBadRequest, err)
				return
			}
		}

		result, err := a.service.Predict(r.Context(), slot, req.Responses)
		if err != nil {
			a.fail(w, r, slot, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, slot ml.Slot, status int, err error) {
	a.logger.Warn("prediction failed",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("slot", string(slot)),
		zap.Int("status", status),
		zap.Error(err))
	writeError(w, status, err.Error())
}

func decodeStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
