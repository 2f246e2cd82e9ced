package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradefusion/internal/features"
	"tradefusion/models"
)

// ModelState is the versioned persistence artifact: network weights plus the
// feature scaler fitted at training time.
type ModelState struct {
	Version        int                     `json:"version"`
	Network        *networkState           `json:"network"`
	Scaler         *features.MinMaxScaler  `json:"scaler"`
	FeatureColumns []string                `json:"feature_columns"`
	SequenceLength int                     `json:"sequence_length"`
	SavedAt        time.Time               `json:"saved_at"`
}

// Store persists model states keyed by integer version.
type Store interface {
	Save(state *ModelState) error
	Load(version int) (*ModelState, error)
	LatestVersion() (int, error)
}

// FileStore keeps one JSON blob per version under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating model dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(version int) string {
	return filepath.Join(s.dir, fmt.Sprintf("model_v%d.json", version))
}

// Save writes the state atomically via a temp file rename.
func (s *FileStore) Save(state *ModelState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding model state: %w", err)
	}
	tmp := s.path(state.Version) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing model state: %w", err)
	}
	if err := os.Rename(tmp, s.path(state.Version)); err != nil {
		return fmt.Errorf("committing model state: %w", err)
	}
	return nil
}

// Load reads a specific version, returning VersionNotFoundError when absent.
func (s *FileStore) Load(version int) (*ModelState, error) {
	data, err := os.ReadFile(s.path(version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &models.VersionNotFoundError{Version: version}
		}
		return nil, fmt.Errorf("reading model state: %w", err)
	}
	var state ModelState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding model state: %w", err)
	}
	return &state, nil
}

// LatestVersion returns the highest saved version, or 0 when none exist.
func (s *FileStore) LatestVersion() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "model_v*.json"))
	if err != nil {
		return 0, fmt.Errorf("listing model versions: %w", err)
	}
	latest := 0
	for _, match := range matches {
		var v int
		if _, err := fmt.Sscanf(filepath.Base(match), "model_v%d.json", &v); err == nil && v > latest {
			latest = v
		}
	}
	return latest, nil
}
