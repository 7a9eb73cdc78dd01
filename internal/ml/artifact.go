package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"iot-device-id/internal/common"
)

// Artifact is the on-disk envelope for every serialized model in the model directory.
type Artifact struct {
	Kind    string          `json:"kind"`
	Name    string          `json:"name,omitempty"`
	Version string          `json:"version,omitempty"`
	Model   json.RawMessage `json:"model"`
}

// Deserializer turns the raw model payload of an artifact into a provider.
// It also reports the provider's native class count.
type Deserializer func(data []byte) (ClassProbabilityProvider, int, error)

// errNoProbabilities marks artifacts that decoded fine but cannot score classes,
// such as encoders or label mappings that share the directory.
var errNoProbabilities = errors.New("artifact does not expose class probabilities")

// Deserializers maps artifact kinds to decoders. Kinds missing here are skipped on load.
var Deserializers = map[string]Deserializer{
	common.KindRandomForest: func(d []byte) (ClassProbabilityProvider, int, error) {
		f, err := DecodeForest(d)
		if err != nil {
			return nil, 0, err
		}
		return f, f.Classes(), nil
	},
	common.KindSoftmaxLinear: func(d []byte) (ClassProbabilityProvider, int, error) {
		m, err := DecodeSoftmaxLinear(d)
		if err != nil {
			return nil, 0, err
		}
		return m, m.Classes(), nil
	},
	common.KindXGBoost: func(d []byte) (ClassProbabilityProvider, int, error) {
		b, err := DecodeBooster(d)
		if err != nil {
			return nil, 0, err
		}
		return NewBoosterAdapter(b), b.Classes(), nil
	},
}

// ReadArtifact loads and decodes one artifact file.
func ReadArtifact(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return DecodeArtifact(data)
}

// DecodeArtifact decodes an envelope and its payload.
func DecodeArtifact(data []byte) (*Model, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact envelope: %w", err)
	}
	decode, ok := Deserializers[a.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", errNoProbabilities, a.Kind)
	}
	if len(a.Model) == 0 {
		return nil, fmt.Errorf("artifact of kind %q has no model payload", a.Kind)
	}
	provider, classes, err := decode(a.Model)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.Kind, err)
	}
	return &Model{
		Name:     a.Name,
		Kind:     a.Kind,
		Classes:  classes,
		Provider: provider,
	}, nil
}

// EncodeArtifact wraps a raw model payload in an envelope.
func EncodeArtifact(kind, name string, model any) ([]byte, error) {
	payload, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return json.MarshalIndent(Artifact{Kind: kind, Name: name, Model: payload}, "", "  ")
}
