// Package models - Tomato detection model configurations.
package models

import "strings"

// Architecture is the detector family a model file was trained with.
type Architecture string

const (
	// ArchitectureYOLOv8Nano is YOLOv8 Nano.
	ArchitectureYOLOv8Nano Architecture = "YOLOv8 Nano"
	// ArchitectureYOLOv8Small is YOLOv8 Small.
	ArchitectureYOLOv8Small Architecture = "YOLOv8 Small"
	// ArchitectureYOLOv9Tiny is YOLOv9 Tiny.
	ArchitectureYOLOv9Tiny Architecture = "YOLOv9 Tiny"
	// ArchitectureYOLOv10Nano is YOLOv10 Nano.
	ArchitectureYOLOv10Nano Architecture = "YOLOv10 Nano"
	// ArchitectureYOLOv11Nano is YOLOv11 Nano.
	ArchitectureYOLOv11Nano Architecture = "YOLOv11 Nano"
	// ArchitectureUnknown is any file whose name does not identify a family.
	ArchitectureUnknown Architecture = "Unknown"
)

// Speed is the coarse latency class advertised for a model.
type Speed string

const (
	// SpeedFast is a nano or tiny sized network.
	SpeedFast Speed = "fast"
	// SpeedMedium is a small sized network.
	SpeedMedium Speed = "medium"
)

// Model is a named detection model that can be loaded by a detector.
type Model struct {
	// Name is the registry key, e.g. "yolov8n".
	Name string `json:"name" yaml:"name"`
	// Path is the ONNX file the detector loads.
	Path string `json:"path" yaml:"path"`
	// Description is a human-readable summary.
	Description string `json:"description" yaml:"description"`
	// Speed is the advertised latency class.
	Speed Speed `json:"speed" yaml:"speed"`
	// Accuracy is the reported validation accuracy in [0, 1].
	Accuracy float64 `json:"accuracy" yaml:"accuracy"`
}

// Architecture infers the detector family from the model name.
func (m Model) Architecture() Architecture {
	return ArchitectureFromName(m.Name)
}

var architectureTokens = []struct {
	token string
	arch  Architecture
}{
	{"yolov8n", ArchitectureYOLOv8Nano},
	{"yolov8s", ArchitectureYOLOv8Small},
	{"yolov9t", ArchitectureYOLOv9Tiny},
	{"yolov10n", ArchitectureYOLOv10Nano},
	{"yolov11n", ArchitectureYOLOv11Nano},
}

// ArchitectureFromName returns the architecture whose token appears in name.
//
// Arguments:
//   - name: A model name or file stem such as "yolov8n_tomato".
//
// Returns:
//   - The matching architecture, or ArchitectureUnknown.
//
// @example
// ArchitectureFromName("yolov10n_tomato") // ArchitectureYOLOv10Nano
func ArchitectureFromName(name string) Architecture {
	name = strings.ToLower(name)
	for _, t := range architectureTokens {
		if strings.Contains(name, t.token) {
			return t.arch
		}
	}
	return ArchitectureUnknown
}
