package services

import (
	"context"

	"github.com/nuthan1805/loyalty-managemen/pkg/pg"
)

type HealthService struct {
	db *pg.DB
}

func NewHealthService(db *pg.DB) *HealthService {
	return &HealthService{db: db}
}

// Get reports whether the backing store answers a trivial query.
func (s *HealthService) Get() error {
	var one int
	if err := s.db.Read(context.Background()).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return ErrBackendUnavailable
	}
	return nil
}
