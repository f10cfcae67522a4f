package app

import (
	"sync"

	"biometric/domain/core"
	"biometric/domain/selection"
	"biometric/internal/config"
	"biometric/internal/errors"
	"biometric/internal/logging"
	"biometric/ports"

	"go.uber.org/zap"
)

// Registry holds the views currently open, one per browser tab or CLI run
type Registry struct {
	port     ports.AggregationPort
	exporter *ExportService
	debounce config.DebounceConfig
	logger   *zap.Logger

	mu    sync.RWMutex
	views map[core.ID]*ViewController
}

func NewRegistry(port ports.AggregationPort, exporter *ExportService, debounce config.DebounceConfig, logger *zap.Logger) *Registry {
	logger = logging.OrNop(logger)
	if exporter == nil {
		exporter = NewExportService(logger)
	}
	return &Registry{
		port:     port,
		exporter: exporter,
		debounce: debounce,
		logger:   logger,
		views:    map[core.ID]*ViewController{},
	}
}

// Open creates and registers a view
func (r *Registry) Open(kind selection.Kind, sessionID string) *ViewController {
	v := NewViewController(r.port, kind, sessionID, ViewOptions{
		Debounce: DebounceFor(kind, r.debounce.Correlation, r.debounce.Descriptive),
		Logger:   r.logger,
		Exporter: r.exporter,
	})

	r.mu.Lock()
	r.views[v.ID()] = v
	n := len(r.views)
	r.mu.Unlock()

	r.logger.Info("view opened", zap.String("view_id", v.ID().String()), zap.String("kind", string(kind)), zap.Int("open", n))
	return v
}

// Get returns an open view
func (r *Registry) Get(id core.ID) (*ViewController, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[id]
	if !ok {
		return nil, errors.NotFound("view " + id.String())
	}
	return v, nil
}

// Close closes and forgets a view
func (r *Registry) Close(id core.ID) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if !ok {
		return errors.NotFound("view " + id.String())
	}
	v.Close()
	return nil
}

// CloseAll closes every open view
func (r *Registry) CloseAll() {
	r.mu.Lock()
	views := r.views
	r.views = map[core.ID]*ViewController{}
	r.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}
