package providers

import (
	"github.com/samber/do/v2"

	"github.com/simmerapp/simmer-server/internal/config"
	"github.com/simmerapp/simmer-server/internal/logger"
	"github.com/simmerapp/simmer-server/internal/search"
	"github.com/simmerapp/simmer-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability. Index is
// nil when search is disabled by configuration.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Search disabled by configuration")
		return &SearchIndexHandle{Index: nil}, nil
	}

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.Search.IndexPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "path", cfg.Search.IndexPath, "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// ProvideSearchService provides the search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(storeHandle.Store, indexHandle.Index, log.Logger), nil
}
