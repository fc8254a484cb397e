package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// EmbeddingsCache is the on-disk snapshot of a model's catalog embeddings.
// Keeping them in a file lets a rebuilt database restore vectors without
// re-embedding the whole catalog.
type EmbeddingsCache struct {
	Model      string            `json:"model"`
	CreatedAt  time.Time         `json:"created_at"`
	MovieCount int               `json:"movie_count"`
	Embeddings map[int][]float64 `json:"embeddings"`
}

// EmbeddingCacheDir manages per-model embedding cache files in a directory.
type EmbeddingCacheDir struct {
	dir string
}

// NewEmbeddingCacheDir creates the cache directory if needed.
func NewEmbeddingCacheDir(dir string) (*EmbeddingCacheDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create embeddings cache directory: %w", err)
	}
	return &EmbeddingCacheDir{dir: dir}, nil
}

// Save writes the embeddings for a model, replacing any previous file.
func (c *EmbeddingCacheDir) Save(model string, embeddings map[int][]float64) error {
	cache := EmbeddingsCache{
		Model:      model,
		CreatedAt:  time.Now().UTC(),
		MovieCount: len(embeddings),
		Embeddings: embeddings,
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode embeddings cache: %w", err)
	}
	if err := os.WriteFile(c.fileName(model), data, 0o644); err != nil {
		return fmt.Errorf("failed to write embeddings cache: %w", err)
	}
	return nil
}

// Load reads the cached embeddings for a model. A missing file yields an
// empty map, not an error.
func (c *EmbeddingCacheDir) Load(model string) (map[int][]float64, error) {
	data, err := os.ReadFile(c.fileName(model))
	if err != nil {
		if os.IsNotExist(err) {
			return map[int][]float64{}, nil
		}
		return nil, fmt.Errorf("failed to read embeddings cache: %w", err)
	}

	var cache EmbeddingsCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("invalid embeddings cache file: %w", err)
	}
	if cache.Embeddings == nil {
		return map[int][]float64{}, nil
	}
	return cache.Embeddings, nil
}

// Models lists the models that have a cache file.
func (c *EmbeddingCacheDir) Models() ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(c.dir, "embeddings_*.json"))
	if err != nil {
		return nil, err
	}

	var models []string
	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cache EmbeddingsCache
		if err := json.Unmarshal(data, &cache); err != nil {
			continue
		}
		if cache.Model != "" {
			models = append(models, cache.Model)
		}
	}
	return models, nil
}

// Delete removes the cache for one model, or every cache when model is
// empty. Reports whether anything was removed.
func (c *EmbeddingCacheDir) Delete(model string) (bool, error) {
	if model == "" {
		entries, err := filepath.Glob(filepath.Join(c.dir, "embeddings_*.json"))
		if err != nil {
			return false, err
		}
		for _, path := range entries {
			if err := os.Remove(path); err != nil {
				return false, err
			}
		}
		return len(entries) > 0, nil
	}

	path := c.fileName(model)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}

func (c *EmbeddingCacheDir) fileName(model string) string {
	safe := strings.NewReplacer("-", "_", " ", "_", "/", "_").Replace(model)
	return filepath.Join(c.dir, fmt.Sprintf("embeddings_%s.json", safe))
}
