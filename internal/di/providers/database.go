package providers

import (
	"log/slog"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/simmerapp/simmer-server/internal/config"
	"github.com/simmerapp/simmer-server/internal/logger"
	"github.com/simmerapp/simmer-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "simmer.db")
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
