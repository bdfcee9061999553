package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps artifacts as JSON files under a directory.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

// ArtifactKey is the object name an artifact version is stored under.
func ArtifactKey(version string) string {
	return fmt.Sprintf("failure_predictor_%s.json", version)
}

func (s *FileStore) path(version string) string {
	return filepath.Join(s.Dir, ArtifactKey(version))
}

func (s *FileStore) Load(_ context.Context, version string) (*Artifact, error) {
	data, err := os.ReadFile(s.path(version))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return DecodeArtifact(data)
}

func (s *FileStore) Save(_ context.Context, version string, a *Artifact) error {
	data, err := EncodeArtifact(a)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return os.Rename(tmp.Name(), s.path(version))
}

func EncodeArtifact(a *Artifact) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return data, nil
}

func DecodeArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
