package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"iot-device-id/internal/ml"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 4 << 20

type predictResponse struct {
	*ml.PredictionResult
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
}

type modelSummary struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Classes   int    `json:"classes"`
	Features  int    `json:"features,omitempty"`
	Objective string `json:"objective,omitempty"`
	Calls     int64  `json:"calls,omitempty"`
}

func summarizeModel(m ml.Model) modelSummary {
	out := modelSummary{Name: m.Name, Kind: m.Kind, Classes: m.Classes}
	switch p := m.Provider.(type) {
	case *ml.ForestModel:
		out.Features = p.Features()
	case *ml.BoosterAdapter:
		out.Objective = p.Booster().Objective()
		out.Calls = p.Calls()
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rt := s.deps.Service.Runtime()
	writeJSON(w, http.StatusOK, map[string]any{
		"feature_columns":   rt.FeatureNames(),
		"device_categories": rt.Registry().Labels(),
		"models":            rt.Pool().Len(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	ctx, cancel := context.WithTimeout(r.Context(), s.deps.RequestTimeout)
	defer cancel()

	values, vector, err := readFeatures(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var res *ml.PredictionResult
	if vector != nil {
		res, err = s.deps.Service.Predict(ctx, vector)
	} else {
		res, err = s.deps.Service.PredictNamed(ctx, values)
	}
	if err != nil {
		switch {
		case errors.Is(err, ml.ErrDimensionMismatch), errors.Is(err, ml.ErrInvalidFeature):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Str("request_id", requestID).Msg("prediction failed")
			writeError(w, http.StatusInternalServerError, "Prediction failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{PredictionResult: res, Success: true, RequestID: requestID})
}

// readFeatures accepts a form, a JSON object of name to value, or a JSON body with a
// "features" array in feature order.
func readFeatures(w http.ResponseWriter, r *http.Request) (map[string]string, []float64, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if ct != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, nil, fmt.Errorf("invalid form: %w", err)
		}
		values := make(map[string]string, len(r.PostForm))
		for k, v := range r.PostForm {
			if len(v) > 0 {
				values[k] = v[0]
			}
		}
		return values, nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if f, ok := raw["features"]; ok {
		var vec []float64
		if err := json.Unmarshal(f, &vec); err == nil {
			return nil, vec, nil
		}
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			values[k] = str
			continue
		}
		values[k] = strings.TrimSpace(string(v))
	}
	return values, nil, nil
}

func (s *Server) handleSampleData(w http.ResponseWriter, r *http.Request) {
	sample := s.deps.Dataset.RandomSample()
	out := make(map[string]any, len(sample.Values)+1)
	for k, v := range sample.Values {
		out[k] = v
	}
	out["actual_category"] = sample.Category
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDatasetInfo(w http.ResponseWriter, r *http.Request) {
	summary := s.deps.Dataset.Summary()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_samples":     summary.TotalSamples,
		"total_features":    summary.TotalFeatures,
		"device_categories": summary.Categories,
		"category_counts":   summary.Counts(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rt := s.deps.Service.Runtime()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"models":    rt.Pool().Len(),
		"strategy":  rt.Report().Strategy,
		"loaded_at": rt.LoadedAt().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	rt := s.deps.Service.Runtime()
	report := rt.Report()

	models := make([]modelSummary, 0, rt.Pool().Len())
	for _, m := range rt.Pool().Models() {
		models = append(models, summarizeModel(m))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"strategy":        report.Strategy,
		"model_dir":       report.ModelDir,
		"models":          models,
		"skipped":         report.Skipped,
		"warnings":        report.Warnings,
		"features":        rt.NumFeatures(),
		"feature_columns": rt.FeatureNames(),
		"classes":         rt.Registry().Labels(),
		"label_source":    rt.Registry().Source(),
		"input_policy":    s.deps.Service.InputPolicy(),
		"loaded_at":       rt.LoadedAt().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeError(w, http.StatusNotFound, "load catalog is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	loads, err := s.deps.Catalog.ListLoads(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list loads")
		writeError(w, http.StatusInternalServerError, "failed to read load catalog")
		return
	}
	artifacts, err := s.deps.Catalog.Artifacts()
	if err != nil {
		log.Error().Err(err).Msg("failed to list artifacts")
		writeError(w, http.StatusInternalServerError, "failed to read load catalog")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"loads":     loads,
		"artifacts": artifacts,
	})
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeError(w, http.StatusNotFound, "load catalog is disabled")
		return
	}

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	rec, found, err := s.deps.Catalog.GetLoad(id)
	if err != nil {
		log.Error().Err(err).Uint64("load_id", id).Msg("failed to read load")
		writeError(w, http.StatusInternalServerError, "failed to read load catalog")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "load not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
