package http

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"lockerslot/ml"
)

// PredictResponse is the body of a successful prediction.
type PredictResponse struct {
	AssignSlot int `json:"assign_slot"`
}

// ValidationError mirrors one entry of a 422 response body.
type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Handler serves predictions from a model loaded once at startup. The model
// is only read, so requests share it without locking.
type Handler struct {
	model  ml.Classifier
	logger *zap.Logger
}

func NewHandler(model ml.Classifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{model: model, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /health", handleHealth)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	features, errs := decodeFeatures(r.Body)
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]ValidationError{"detail": errs})
		return
	}

	label, _, err := h.model.Predict(features.Vector())
	if err != nil {
		h.logger.Error("prediction failed", zap.Error(err), zap.String("request_id", GetRequestID(r.Context())))
		writeInternalError(w)
		return
	}
	if label != 0 && label != 1 {
		h.logger.Error("model returned non-binary label", zap.Int("label", label), zap.String("request_id", GetRequestID(r.Context())))
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, PredictResponse{AssignSlot: label})
}

// decodeFeatures reads a JSON object and type-checks each schema field on
// its own, reporting every problem rather than stopping at the first. Unknown
// fields are ignored.
func decodeFeatures(body io.Reader) (ml.Features, []ValidationError) {
	var payload any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ml.Features{}, []ValidationError{{Loc: []string{"body"}, Msg: "Request body too large", Type: "too_large"}}
		}
		return ml.Features{}, []ValidationError{{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"}}
	}
	fields, ok := payload.(map[string]any)
	if !ok {
		return ml.Features{}, []ValidationError{{
			Loc:  []string{"body"},
			Msg:  "Input should be a valid dictionary or object to extract fields from",
			Type: "model_attributes_type",
		}}
	}

	v := fieldReader{fields: fields}
	f := ml.Features{
		CustomerLat:           v.floatField("customer_lat"),
		CustomerLng:           v.floatField("customer_lng"),
		LockerLat:             v.floatField("locker_lat"),
		LockerLng:             v.floatField("locker_lng"),
		DistanceKm:            v.floatField("distance_km"),
		AvailableCompartments: v.intField("available_compartments"),
		ActivePickups:         v.intField("active_pickups"),
		TotalCompartments:     v.intField("total_compartments"),
		TimeOfDay:             v.intField("time_of_day"),
	}
	return f, v.errs
}

type fieldReader struct {
	fields map[string]any
	errs   []ValidationError
}

func (v *fieldReader) fail(name, msg, typ string) {
	v.errs = append(v.errs, ValidationError{Loc: []string{"body", name}, Msg: msg, Type: typ})
}

func (v *fieldReader) number(name string) (float64, bool) {
	raw, ok := v.fields[name]
	if !ok {
		v.fail(name, "Field required", "missing")
		return 0, false
	}
	switch n := raw.(type) {
	case float64:
		return n, true
	case string:
		// numeric strings such as "12.9" are coerced
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func (v *fieldReader) floatField(name string) float64 {
	n, ok := v.number(name)
	if !ok {
		if _, present := v.fields[name]; present {
			v.fail(name, "Input should be a valid number", "float_type")
		}
		return 0
	}
	return n
}

// intField accepts integral values only; 14, 14.0 and "14" pass, 14.5 does not.
func (v *fieldReader) intField(name string) int {
	n, ok := v.number(name)
	if !ok {
		if _, present := v.fields[name]; present {
			v.fail(name, "Input should be a valid integer", "int_type")
		}
		return 0
	}
	if n != math.Trunc(n) {
		v.fail(name, "Input should be a valid integer, got a number with a fractional part", "int_from_float")
		return 0
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		v.fail(name, "Input should be a valid integer, number out of range", "int_parsing_size")
		return 0
	}
	return int(n)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
