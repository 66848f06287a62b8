package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrModelNotFound is returned when a name is not in the registry.
var ErrModelNotFound = errors.New("model not found")

// DefaultModel is the model used when a request does not name one.
const DefaultModel = "yolov8n"

// Registry maps model names to their configuration.
type Registry struct {
	models map[string]Model
}

// NewRegistry creates a registry holding the given models. Later entries
// replace earlier ones with the same name.
func NewRegistry(models ...Model) *Registry {
	r := &Registry{models: make(map[string]Model, len(models))}
	for _, m := range models {
		r.Register(m)
	}
	return r
}

// DefaultRegistry returns the five fine-tuned tomato models, resolved
// against dir.
//
// Arguments:
//   - dir: The directory holding the exported "<name>_tomato.onnx" files.
//
// Returns:
//   - A registry with yolov8n, yolov8s, yolov9t, yolov10n and yolov11n.
func DefaultRegistry(dir string) *Registry {
	path := func(name string) string {
		return filepath.Join(dir, name+"_tomato.onnx")
	}
	return NewRegistry(
		Model{
			Name:        "yolov8n",
			Path:        path("yolov8n"),
			Description: "YOLOv8 Nano - Fastest, less accurate",
			Speed:       SpeedFast,
			Accuracy:    0.894,
		},
		Model{
			Name:        "yolov8s",
			Path:        path("yolov8s"),
			Description: "YOLOv8 Small - Balanced speed and accuracy",
			Speed:       SpeedMedium,
			Accuracy:    0.889,
		},
		Model{
			Name:        "yolov9t",
			Path:        path("yolov9t"),
			Description: "YOLOv9 Tiny - Compact model",
			Speed:       SpeedFast,
			Accuracy:    0.826,
		},
		Model{
			Name:        "yolov10n",
			Path:        path("yolov10n"),
			Description: "YOLOv10 Nano - NMS-free head",
			Speed:       SpeedFast,
			Accuracy:    0.755,
		},
		Model{
			Name:        "yolov11n",
			Path:        path("yolov11n"),
			Description: "YOLOv11 Nano - Latest architecture",
			Speed:       SpeedFast,
			Accuracy:    0.780,
		},
	)
}

// Register adds or replaces a model.
func (r *Registry) Register(m Model) {
	r.models[m.Name] = m
}

// Get returns the named model.
//
// Arguments:
//   - name: The registry key.
//
// Returns:
//   - The model, or an error wrapping ErrModelNotFound.
func (r *Registry) Get(name string) (Model, error) {
	m, ok := r.models[name]
	if !ok {
		return Model{}, errors.Wrapf(ErrModelNotFound, "%q", name)
	}
	return m, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models returns the registered models sorted by name.
func (r *Registry) Models() []Model {
	out := make([]Model, 0, len(r.models))
	for _, name := range r.Names() {
		out = append(out, r.models[name])
	}
	return out
}

// Subset returns a registry restricted to names. An empty list keeps every
// model.
func (r *Registry) Subset(names []string) (*Registry, error) {
	if len(names) == 0 {
		return NewRegistry(r.Models()...), nil
	}
	sub := NewRegistry()
	for _, name := range names {
		m, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		sub.Register(m)
	}
	return sub, nil
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}

type registryFile struct {
	Models []Model `json:"models" yaml:"models"`
}

// LoadRegistry reads a model list from a YAML or JSON file. The format is
// chosen by extension; ".json" is JSON and everything else is YAML.
//
// Arguments:
//   - path: The file to read.
//
// Returns:
//   - The registry, or an error if the file cannot be read or decoded.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model registry")
	}

	var file registryFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode model registry %s", path)
	}

	for i, m := range file.Models {
		if m.Name == "" {
			return nil, errors.Errorf("model %d in %s has no name", i, path)
		}
		if m.Path != "" && !filepath.IsAbs(m.Path) {
			file.Models[i].Path = filepath.Join(filepath.Dir(path), m.Path)
		}
	}

	return NewRegistry(file.Models...), nil
}
