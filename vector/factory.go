package vector

import (
	"fmt"
	"strings"

	"github.com/hubenschmidt/go-wikidex/config"
)

// NewStore selects a backend from the store configuration.
// - postgres:// or postgresql:// DSN: pgvector
// - any other non-empty DSN: sqlite at that path
// - empty DSN: in-memory
func NewStore(cfg config.StoreConfig) (Store, error) {
	if cfg.Distance != "" && !strings.EqualFold(cfg.Distance, "cosine") {
		return nil, fmt.Errorf("unsupported distance metric %q", cfg.Distance)
	}

	switch {
	case cfg.DSN == "":
		return NewMemoryStore(cfg.VectorSize), nil
	case strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://"):
		s, err := NewPgVectorStore(cfg.DSN, cfg.Collection, cfg.VectorSize)
		if err != nil {
			return nil, fmt.Errorf("pgvector: %w", err)
		}
		return s, nil
	default:
		s, err := NewSQLiteStore(cfg.DSN, cfg.Collection, cfg.VectorSize)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return s, nil
	}
}
