// Package manifest reads and writes render-job manifests: a resolved
// composition descriptor plus the job identity and output target.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ivlev/composer/internal/composition"
	"gopkg.in/yaml.v3"
)

// Version is written into every manifest produced by this package.
const Version = "1.0"

var ErrUnsupportedFormat = errors.New("unsupported manifest format")

// Manifest is one render job for one composition.
type Manifest struct {
	Version     string                 `yaml:"version" json:"version"`
	JobID       string                 `yaml:"jobId" json:"jobId"`
	CreatedAt   time.Time              `yaml:"createdAt" json:"createdAt"`
	Output      string                 `yaml:"output,omitempty" json:"output,omitempty"`
	Composition composition.Descriptor `yaml:"composition" json:"composition"`
}

// New creates a manifest with a fresh job id.
func New(d composition.Descriptor, output string) *Manifest {
	return &Manifest{
		Version:     Version,
		JobID:       uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Output:      output,
		Composition: d,
	}
}

// Validate checks the job fields and the embedded descriptor.
func (m *Manifest) Validate() error {
	if m.JobID == "" {
		return fmt.Errorf("manifest has no job id")
	}
	if _, err := uuid.Parse(m.JobID); err != nil {
		return fmt.Errorf("manifest job id %q: %w", m.JobID, err)
	}
	return m.Composition.Validate()
}

// Format picks the codec for a path by its extension.
func Format(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Marshal encodes m in the given format ("yaml" or "json").
func Marshal(m *Manifest, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(m)
	case "json":
		return json.MarshalIndent(m, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Unmarshal decodes and validates a manifest.
func Unmarshal(data []byte, format string) (*Manifest, error) {
	var m Manifest
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &m)
	case "json":
		err = json.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Write stores a manifest, choosing YAML or JSON by extension.
func Write(m *Manifest, path string) error {
	format, err := Format(path)
	if err != nil {
		return err
	}
	data, err := Marshal(m, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Read loads a manifest, choosing YAML or JSON by extension.
func Read(path string) (*Manifest, error) {
	format, err := Format(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Unmarshal(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadComposition loads the descriptor held in path. The file may be a full
// manifest or a bare descriptor document.
func ReadComposition(path string) (composition.Descriptor, error) {
	format, err := Format(path)
	if err != nil {
		return composition.Descriptor{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return composition.Descriptor{}, err
	}

	isManifest, err := hasCompositionKey(data, format)
	if err != nil {
		return composition.Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	if isManifest {
		m, err := Unmarshal(data, format)
		if err != nil {
			return composition.Descriptor{}, fmt.Errorf("%s: %w", path, err)
		}
		return m.Composition, nil
	}

	var d composition.Descriptor
	if format == "json" {
		d, err = composition.DecodeJSON(data)
	} else {
		d, err = composition.DecodeYAML(data)
	}
	if err != nil {
		return composition.Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// hasCompositionKey reports whether data is a manifest rather than a bare
// descriptor. It decodes with the same parser the full read will use, so
// both agree on what a well-formed document is.
func hasCompositionKey(data []byte, format string) (bool, error) {
	var err error
	var found bool
	switch format {
	case "json":
		var probe map[string]json.RawMessage
		err = json.Unmarshal(data, &probe)
		_, found = probe["composition"]
	default:
		var probe map[string]yaml.Node
		err = yaml.Unmarshal(data, &probe)
		_, found = probe["composition"]
	}
	if err != nil {
		return false, &composition.SerializationError{Reason: "read document", Err: err}
	}
	return found, nil
}
