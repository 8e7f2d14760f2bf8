package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lockerslot/ml"
)

type fakeModel struct {
	label int
	err   error
	seen  [][]float64
}

func (f *fakeModel) Predict(features []float64) (int, float64, error) {
	f.seen = append(f.seen, features)
	return f.label, 0.9, f.err
}

const validBody = `{
	"customer_lat": 12.9,
	"customer_lng": 77.6,
	"locker_lat": 12.91,
	"locker_lng": 77.61,
	"distance_km": 1.2,
	"available_compartments": 3,
	"active_pickups": 1,
	"total_compartments": 10,
	"time_of_day": 14
}`

func newTestMux(model ml.Classifier) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(model, nil).Register(mux)
	return mux
}

func postPredict(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func validationErrors(t *testing.T, w *httptest.ResponseRecorder) []ValidationError {
	t.Helper()
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var payload struct {
		Detail []ValidationError `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload.Detail
}

func TestHandlePredict(t *testing.T) {
	model := &fakeModel{label: 1}
	w := postPredict(t, newTestMux(model), validBody)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"assign_slot": 1}`, w.Body.String())

	require.Len(t, model.seen, 1)
	assert.Equal(t, []float64{12.9, 77.6, 12.91, 77.61, 1.2, 3, 1, 10, 14}, model.seen[0])
}

func TestHandlePredictOnlyAssignSlot(t *testing.T) {
	for _, label := range []int{0, 1} {
		w := postPredict(t, newTestMux(&fakeModel{label: label}), validBody)
		require.Equal(t, http.StatusOK, w.Code)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		assert.Len(t, payload, 1)
		assert.Equal(t, float64(label), payload["assign_slot"])
	}
}

func TestHandlePredictMissingField(t *testing.T) {
	model := &fakeModel{label: 1}
	body := strings.Replace(validBody, `"distance_km": 1.2,`, "", 1)
	errs := validationErrors(t, postPredict(t, newTestMux(model), body))

	require.Len(t, errs, 1)
	assert.Equal(t, []string{"body", "distance_km"}, errs[0].Loc)
	assert.Equal(t, "missing", errs[0].Type)
	assert.Empty(t, model.seen, "model must not be called")
}

func TestHandlePredictTypeErrors(t *testing.T) {
	cases := map[string]struct {
		old, new string
		field    string
		typ      string
	}{
		"string float":    {`"customer_lat": 12.9`, `"customer_lat": "north"`, "customer_lat", "float_type"},
		"null float":      {`"locker_lng": 77.61`, `"locker_lng": null`, "locker_lng", "float_type"},
		"string int":      {`"time_of_day": 14`, `"time_of_day": "two pm"`, "time_of_day", "int_type"},
		"fractional int":  {`"active_pickups": 1`, `"active_pickups": 1.5`, "active_pickups", "int_from_float"},
		"bool int":        {`"total_compartments": 10`, `"total_compartments": true`, "total_compartments", "int_type"},
		"oversized int":   {`"total_compartments": 10`, `"total_compartments": 1e12`, "total_compartments", "int_parsing_size"},
		"object as float": {`"distance_km": 1.2`, `"distance_km": {"km": 1.2}`, "distance_km", "float_type"},
		"infinite string": {`"distance_km": 1.2`, `"distance_km": "inf"`, "distance_km", "float_type"},
		"fractional str":  {`"active_pickups": 1`, `"active_pickups": "1.5"`, "active_pickups", "int_from_float"},
		"empty string":    {`"time_of_day": 14`, `"time_of_day": ""`, "time_of_day", "int_type"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			model := &fakeModel{label: 1}
			body := strings.Replace(validBody, tc.old, tc.new, 1)
			errs := validationErrors(t, postPredict(t, newTestMux(model), body))

			require.Len(t, errs, 1)
			assert.Equal(t, []string{"body", tc.field}, errs[0].Loc)
			assert.Equal(t, tc.typ, errs[0].Type)
			assert.Empty(t, model.seen)
		})
	}
}

func TestHandlePredictAcceptsIntegralFloatsAndExtraFields(t *testing.T) {
	model := &fakeModel{label: 0}
	body := strings.Replace(validBody, `"time_of_day": 14`, `"time_of_day": 14.0, "locker_id": "L-17"`, 1)
	body = strings.Replace(body, `"distance_km": 1.2`, `"distance_km": 2`, 1)
	w := postPredict(t, newTestMux(model), body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"assign_slot": 0}`, w.Body.String())
	assert.Equal(t, 14.0, model.seen[0][8])
	assert.Equal(t, 2.0, model.seen[0][4])
}

func TestHandlePredictAcceptsNumericStrings(t *testing.T) {
	model := &fakeModel{label: 1}
	body := strings.Replace(validBody, `"customer_lat": 12.9`, `"customer_lat": "12.9"`, 1)
	body = strings.Replace(body, `"time_of_day": 14`, `"time_of_day": " 14 "`, 1)
	body = strings.Replace(body, `"total_compartments": 10`, `"total_compartments": "10.0"`, 1)
	w := postPredict(t, newTestMux(model), body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"assign_slot": 1}`, w.Body.String())
	assert.Equal(t, []float64{12.9, 77.6, 12.91, 77.61, 1.2, 3, 1, 10, 14}, model.seen[0])
}

func TestHandlePredictReportsEveryError(t *testing.T) {
	errs := validationErrors(t, postPredict(t, newTestMux(&fakeModel{}), `{"customer_lat": "x"}`))
	assert.Len(t, errs, ml.FeatureCount)
}

func TestHandlePredictMalformedBody(t *testing.T) {
	for _, body := range []string{"", "{", "not json"} {
		errs := validationErrors(t, postPredict(t, newTestMux(&fakeModel{}), body))
		require.Len(t, errs, 1)
		assert.Equal(t, "json_invalid", errs[0].Type)
	}

	errs := validationErrors(t, postPredict(t, newTestMux(&fakeModel{}), "[1,2,3]"))
	require.Len(t, errs, 1)
	assert.Equal(t, "model_attributes_type", errs[0].Type)
}

func TestHandlePredictModelFailure(t *testing.T) {
	mux := newTestMux(&fakeModel{err: errors.New("tree 3: invalid tree state")})
	w := postPredict(t, mux, validBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())

	// a label outside {0,1} is an unexpected output shape
	mux = newTestMux(&fakeModel{label: 2})
	w = postPredict(t, mux, validBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandlePredictWrongMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	w := httptest.NewRecorder()
	newTestMux(&fakeModel{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	http.HandlerFunc(handleHealth).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
