package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"track-downloader/internal/config"
	"track-downloader/pkg/apperr"
	"track-downloader/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const selectorFileName = "SelectorFile"

type format int

const (
	formatJSON format = iota
	formatYAML
)

// SelectorFile keeps the selector registry as a human-editable document:
// YAML for .yaml/.yml paths, indented JSON otherwise.
type SelectorFile struct {
	path   string
	format format
	logger *zap.Logger
	mu     sync.Mutex
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewSelectorFile(params Params) *SelectorFile {
	return OpenSelectorFile(params.Config.SelectorConfig.StorePath, params.Logger)
}

func OpenSelectorFile(path string, logger *zap.Logger) *SelectorFile {
	f := formatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f = formatYAML
	}

	return &SelectorFile{
		path:   path,
		format: f,
		logger: logger.With(zap.String(logg.Layer, selectorFileName), zap.String(logg.Path, path)),
	}
}

func (s *SelectorFile) Path() string {
	return s.path
}

func (s *SelectorFile) Load(ctx context.Context) (map[string][]string, error) {
	const op = "Load"

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		reason := "read_failed"
		if errors.Is(err, fs.ErrNotExist) {
			reason = "not_found"
		}

		return nil, apperr.Wrap(op, apperr.CodeStoreUnavailable, err, map[string]any{
			apperr.MetaReason: reason,
			apperr.MetaStage:  apperr.StageStore,
			apperr.MetaPath:   s.path,
		})
	}

	selectors := make(map[string][]string)

	switch s.format {
	case formatYAML:
		err = yaml.Unmarshal(data, &selectors)
	default:
		err = json.Unmarshal(data, &selectors)
	}

	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeStoreUnavailable, err, map[string]any{
			apperr.MetaReason: "malformed",
			apperr.MetaStage:  apperr.StageStore,
			apperr.MetaPath:   s.path,
		})
	}

	s.logger.Debug("Loaded selectors", zap.String(logg.Operation, op), zap.Int("names", len(selectors)))

	return selectors, nil
}

// Save rewrites the whole document via a temp file and rename.
func (s *SelectorFile) Save(ctx context.Context, selectors map[string][]string) error {
	const op = "Save"

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		data []byte
		err  error
	)

	switch s.format {
	case formatYAML:
		data, err = yaml.Marshal(selectors)
	default:
		data, err = json.MarshalIndent(selectors, "", "  ")
	}

	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageStore,
		})
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperr.Wrap(op, apperr.CodeStoreUnavailable, err, map[string]any{
				apperr.MetaReason: "mkdir_failed",
				apperr.MetaStage:  apperr.StageStore,
				apperr.MetaPath:   dir,
			})
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return apperr.Wrap(op, apperr.CodeStoreUnavailable, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaStage:  apperr.StageStore,
			apperr.MetaPath:   tmpPath,
		})
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)

		return apperr.Wrap(op, apperr.CodeStoreUnavailable, fmt.Errorf("rename %s: %w", tmpPath, err), map[string]any{
			apperr.MetaReason: "rename_failed",
			apperr.MetaStage:  apperr.StageStore,
			apperr.MetaPath:   s.path,
		})
	}

	s.logger.Debug("Saved selectors", zap.String(logg.Operation, op), zap.Int("names", len(selectors)))

	return nil
}
