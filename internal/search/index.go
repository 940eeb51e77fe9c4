package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/simmerapp/simmer-server/internal/domain"
)

// Index wraps a Bleve index with recipe-specific operations.
//
// Thread safety: all public methods are safe for concurrent use. The mutex
// protects against index corruption during rebuild operations.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses stderr if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch triggers an automatic rebuild on startup.
const mappingVersion = "1"

// NewIndex creates or opens the recipe search index. A corrupted index or
// an outdated mapping version causes the index to be removed and recreated.
func NewIndex(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil {
			logger.Info("search index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		} else if string(existingVersion) != mappingVersion {
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		indexMapping := buildIndexMapping()
		index, err = bleve.New(indexPath, indexMapping)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &Index{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexRecipe indexes one recipe with its ingredient names.
func (s *Index) IndexRecipe(recipe *domain.Recipe, ingredients []domain.RecipeIngredient) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := NewDocument(recipe, ingredients)
	// Convert to map to ensure field names match the mapping (lowercase).
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexRecipes indexes multiple recipes in batches. Significantly faster
// than IndexRecipe in a loop when backfilling the index.
func (s *Index) IndexRecipes(docs []*Document) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		chunk := docs[i:end]

		batch := s.index.NewBatch()
		for _, doc := range chunk {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// Delete removes a recipe from the index.
func (s *Index) Delete(recipeID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(recipeID)
}

// DocumentCount returns the total number of indexed recipes.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index and creates a new empty one. This takes
// an exclusive lock and blocks every other index operation while it runs.
func (s *Index) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	indexMapping := buildIndexMapping()
	index, err := bleve.New(s.path, indexMapping)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
