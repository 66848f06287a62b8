package models

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ModelFile describes a model artifact found on disk.
type ModelFile struct {
	Name         string       `json:"name"`
	File         string       `json:"file"`
	SizeMB       float64      `json:"size_mb"`
	Architecture Architecture `json:"architecture"`
}

// ModelExtensions are the file types listed by Inventory.
var ModelExtensions = []string{".onnx", ".pt"}

// Inventory lists the model files in dir.
//
// Arguments:
//   - dir: The models directory.
//
// Returns:
//   - The files sorted by name. A missing directory yields an empty list.
func Inventory(dir string) ([]ModelFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to list models in %s", dir)
	}

	var out []ModelFile
	for _, e := range entries {
		if e.IsDir() || !isModelFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat %s", e.Name())
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		out = append(out, ModelFile{
			Name:         stem,
			File:         e.Name(),
			SizeMB:       float64(info.Size()) / (1024 * 1024),
			Architecture: ArchitectureFromName(stem),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

func isModelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ModelExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
