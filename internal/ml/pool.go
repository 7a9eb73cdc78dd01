package ml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"iot-device-id/internal/common"

	"github.com/rs/zerolog/log"
)

// Pool is the immutable set of loaded classifiers, ordered by artifact filename.
type Pool struct {
	models []Model
}

// NewPool builds a pool from already constructed models.
func NewPool(models ...Model) *Pool {
	return &Pool{models: append([]Model(nil), models...)}
}

// Len is the number of models.
func (p *Pool) Len() int {
	return len(p.models)
}

// Models returns a copy of the pool members.
func (p *Pool) Models() []Model {
	return append([]Model(nil), p.models...)
}

// ArtifactStatus describes one file seen during a load.
type ArtifactStatus struct {
	File    string `json:"file"`
	Kind    string `json:"kind,omitempty"`
	Classes int    `json:"classes,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// LoadReport records what a load did so skips stay observable without being fatal.
type LoadReport struct {
	Strategy string           `json:"strategy"`
	ModelDir string           `json:"model_dir"`
	Loaded   []ArtifactStatus `json:"loaded"`
	Skipped  []ArtifactStatus `json:"skipped"`
	Warnings []string         `json:"warnings,omitempty"`
}

// LoadPool scans dir for model artifacts. When that yields nothing it tries the legacy
// booster at legacyPath. It fails with ErrNoModelsFound when both come up empty.
func LoadPool(dir, legacyPath string) (*Pool, *LoadReport, error) {
	report := &LoadReport{Strategy: common.StrategyEnsemble, ModelDir: dir}

	models, err := loadEnsemble(dir, report)
	if err != nil {
		report.Warnings = append(report.Warnings, err.Error())
		log.Warn().Err(err).Str("model_dir", dir).Msg("model directory unavailable")
	}
	if len(models) > 0 {
		logReport(report)
		return NewPool(models...), report, nil
	}

	if legacyPath == "" {
		return nil, report, fmt.Errorf("%w in %q", ErrNoModelsFound, dir)
	}

	// Artifacts are recorded by base name whichever strategy found them.
	legacyFile := filepath.Base(legacyPath)
	legacy, err := LoadLegacyBooster(legacyPath)
	if err != nil {
		report.Skipped = append(report.Skipped, ArtifactStatus{File: legacyFile, Reason: err.Error()})
		return nil, report, fmt.Errorf("%w in %q or legacy booster %q", ErrNoModelsFound, dir, legacyPath)
	}
	report.Strategy = common.StrategyLegacy
	report.Loaded = append(report.Loaded, ArtifactStatus{
		File:    legacyFile,
		Kind:    legacy.Kind,
		Classes: legacy.Classes,
	})
	logReport(report)
	return NewPool(*legacy), report, nil
}

func loadEnsemble(dir string, report *LoadReport) ([]Model, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("model directory %q not found", dir)
		}
		return nil, fmt.Errorf("read model directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), common.ArtifactExtension) {
			continue
		}
		// Encoders and label mappings share the directory.
		if strings.Contains(strings.ToLower(name), "label") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var models []Model
	for _, name := range names {
		m, err := ReadArtifact(filepath.Join(dir, name))
		if err != nil {
			report.Skipped = append(report.Skipped, ArtifactStatus{File: name, Reason: err.Error()})
			log.Debug().Err(err).Str("file", name).Msg("skipping artifact")
			continue
		}
		if m.Name == "" {
			m.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		models = append(models, *m)
		report.Loaded = append(report.Loaded, ArtifactStatus{File: name, Kind: m.Kind, Classes: m.Classes})
	}
	return models, nil
}

func logReport(r *LoadReport) {
	log.Info().
		Str("strategy", r.Strategy).
		Str("model_dir", r.ModelDir).
		Int("loaded", len(r.Loaded)).
		Int("skipped", len(r.Skipped)).
		Msg("model pool loaded")
}
