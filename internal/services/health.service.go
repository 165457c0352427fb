package services

import (
	"github.com/rmazariegos/campaign-gateway/pkg/pg"
)

// HealthService reports whether the storage backing the API is
// reachable.
type HealthService struct {
	db *pg.DB
}

func NewHealthService(db *pg.DB) *HealthService {
	return &HealthService{db: db}
}

func (s *HealthService) Get() error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping()
}
