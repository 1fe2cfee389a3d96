package model

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/joelsearcy/headliner-go/pkg/preprocess"
	"github.com/joelsearcy/headliner-go/pkg/tokenizer"
	"github.com/spf13/afero"
)

const (
	metaFile    = "model.json"
	weightsFile = "weights.json"
)

type checkpointMeta struct {
	Config       Config                   `json:"config"`
	Preprocessor *preprocess.Preprocessor `json:"preprocessor"`
	Vectorizer   *tokenizer.Vectorizer    `json:"vectorizer"`
}

// Save writes the model into directory path. Files are written next to their
// final name and renamed into place.
func (s *Summarizer) Save(path string) error {
	if s.params == nil {
		return ErrNotInitialized
	}
	if err := s.fs.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	meta := checkpointMeta{Config: s.cfg, Preprocessor: s.preprocessor, Vectorizer: s.vectorizer}
	if err := writeJSON(s.fs, filepath.Join(path, metaFile), meta); err != nil {
		return err
	}
	weights := make(map[string][]float64)
	for _, m := range s.params.named() {
		weights[m.name] = m.matrix.Values()
	}
	return writeJSON(s.fs, filepath.Join(path, weightsFile), weights)
}

// Load restores a Summarizer saved with Save.
func Load(fs afero.Fs, path string) (*Summarizer, error) {
	var meta checkpointMeta
	if err := readJSON(fs, filepath.Join(path, metaFile), &meta); err != nil {
		return nil, err
	}
	if meta.Preprocessor == nil || meta.Vectorizer == nil ||
		meta.Vectorizer.Encoder == nil || meta.Vectorizer.Decoder == nil {
		return nil, fmt.Errorf("checkpoint %s is incomplete", path)
	}
	s := NewSummarizer(meta.Config, WithFs(fs))
	if err := s.Init(meta.Preprocessor, meta.Vectorizer, nil, nil); err != nil {
		return nil, err
	}

	var weights map[string][]float64
	if err := readJSON(fs, filepath.Join(path, weightsFile), &weights); err != nil {
		return nil, err
	}
	for _, m := range s.params.named() {
		values, ok := weights[m.name]
		if !ok {
			return nil, fmt.Errorf("checkpoint %s: missing weights %q", path, m.name)
		}
		if err := m.matrix.SetValues(values); err != nil {
			return nil, fmt.Errorf("checkpoint %s: %s: %w", path, m.name, err)
		}
	}
	return s, nil
}

func writeJSON(fs afero.Fs, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func readJSON(fs afero.Fs, path string, v any) error {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
