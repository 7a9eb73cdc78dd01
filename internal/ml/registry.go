package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"iot-device-id/internal/common"

	"github.com/rs/zerolog/log"
)

// DefaultDeviceCategories is used whenever no label encoder is available.
var DefaultDeviceCategories = []string{
	"baby_monitor", "lights", "motion_sensor", "security_camera",
	"smoke_detector", "socket", "thermostat", "TV", "watch",
}

// Registry is the ordered, immutable list of class labels.
type Registry struct {
	labels  []string
	index   map[string]int
	source  string
	warning string
}

type labelEncoderFile struct {
	Classes []json.RawMessage `json:"classes"`
}

// NewRegistry copies labels into a registry.
func NewRegistry(labels []string, source string) *Registry {
	r := &Registry{
		labels: append([]string(nil), labels...),
		index:  make(map[string]int, len(labels)),
		source: source,
	}
	for i, l := range r.labels {
		if _, dup := r.index[l]; !dup {
			r.index[l] = i
		}
	}
	return r
}

// ResolveRegistry loads the label encoder from dir, falling back to the default
// categories. An unreadable or malformed encoder is never fatal; the reason is kept
// in Warning.
func ResolveRegistry(dir string) *Registry {
	path := filepath.Join(dir, common.LabelEncoderFile)
	data, err := os.ReadFile(path)
	if err != nil {
		r := NewRegistry(DefaultDeviceCategories, "default")
		if !os.IsNotExist(err) {
			r.warning = fmt.Sprintf("read label encoder: %v", err)
		}
		return r
	}

	labels, err := decodeLabelEncoder(data)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("label encoder unusable, keeping default categories")
		r := NewRegistry(DefaultDeviceCategories, "default")
		r.warning = err.Error()
		return r
	}
	return NewRegistry(labels, path)
}

// decodeLabelEncoder accepts string or numeric class entries, like an encoder fit on
// integer labels would produce.
func decodeLabelEncoder(data []byte) ([]string, error) {
	var f labelEncoderFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse label encoder: %w", err)
	}
	if len(f.Classes) == 0 {
		return nil, fmt.Errorf("label encoder has no classes")
	}
	labels := make([]string, len(f.Classes))
	for i, raw := range f.Classes {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			labels[i] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("class %d: unsupported value %s", i, string(raw))
		}
		labels[i] = n.String()
	}
	return labels, nil
}

// Labels returns a copy of the ordered labels.
func (r *Registry) Labels() []string {
	return append([]string(nil), r.labels...)
}

// Len is the class count.
func (r *Registry) Len() int {
	return len(r.labels)
}

// Label returns the label at index i.
func (r *Registry) Label(i int) (string, bool) {
	if i < 0 || i >= len(r.labels) {
		return "", false
	}
	return r.labels[i], true
}

// IndexOf returns the index of label.
func (r *Registry) IndexOf(label string) (int, bool) {
	i, ok := r.index[label]
	return i, ok
}

// Source is the encoder path or "default".
func (r *Registry) Source() string {
	return r.source
}

// Warning explains why an existing encoder was ignored, if it was.
func (r *Registry) Warning() string {
	return r.warning
}
