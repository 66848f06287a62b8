package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrResultNotFound is returned for unknown or malformed detection IDs.
var ErrResultNotFound = errors.New("results not found")

const (
	resultsSuffix   = "_results.json"
	annotatedSuffix = "_annotated.jpg"
)

// Store keeps uploads, result JSON and annotated images on disk.
type Store struct {
	uploadDir  string
	resultsDir string
}

// NewStore creates the directories if needed.
//
// Arguments:
//   - uploadDir: Where uploads are written as "<id><ext>".
//   - resultsDir: Where "<id>_results.json" and "<id>_annotated.jpg" live.
//
// Returns:
//   - The store.
//   - error: An error if a directory cannot be created.
func NewStore(uploadDir, resultsDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, resultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	return &Store{uploadDir: uploadDir, resultsDir: resultsDir}, nil
}

// validID rejects anything that is not a UUID so IDs cannot escape the
// store directories.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// SaveUpload writes the original upload.
func (s *Store) SaveUpload(id, ext string, data []byte) (string, error) {
	path := filepath.Join(s.uploadDir, id+strings.ToLower(ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to save upload %s", id)
	}
	return path, nil
}

// AnnotatedPath returns where the annotated image of id is written.
func (s *Store) AnnotatedPath(id string) string {
	return filepath.Join(s.resultsDir, id+annotatedSuffix)
}

func (s *Store) resultPath(id string) string {
	return filepath.Join(s.resultsDir, id+resultsSuffix)
}

// Save writes the result JSON.
func (s *Store) Save(r *DetectionResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "failed to encode result")
	}
	if err := os.WriteFile(s.resultPath(r.DetectionID), data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to save result %s", r.DetectionID)
	}
	return nil
}

// Get reads a stored result.
func (s *Store) Get(id string) (*DetectionResult, error) {
	if !validID(id) {
		return nil, ErrResultNotFound
	}
	data, err := os.ReadFile(s.resultPath(id))
	if os.IsNotExist(err) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read result %s", id)
	}

	var r DetectionResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "failed to decode result %s", id)
	}
	return &r, nil
}

// Delete removes the result JSON, the upload and the annotated image of id.
// Missing files are ignored.
func (s *Store) Delete(id string) error {
	if !validID(id) {
		return nil
	}
	uploads, err := filepath.Glob(filepath.Join(s.uploadDir, id+".*"))
	if err != nil {
		return errors.Wrap(err, "failed to list uploads")
	}

	paths := append([]string{s.resultPath(id), s.AnnotatedPath(id)}, uploads...)
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to delete %s", p)
		}
	}
	return nil
}

// List returns every stored result sorted by timestamp. Unreadable files
// are skipped.
func (s *Store) List() ([]*DetectionResult, error) {
	paths, err := filepath.Glob(filepath.Join(s.resultsDir, "*"+resultsSuffix))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list results")
	}

	out := make([]*DetectionResult, 0, len(paths))
	for _, p := range paths {
		id := strings.TrimSuffix(filepath.Base(p), resultsSuffix)
		r, err := s.Get(id)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
