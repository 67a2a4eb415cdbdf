package service

import (
	"context"

	earningdomain "github.com/visalane/visalane/internal/earning/domain"
	expertdomain "github.com/visalane/visalane/internal/expert/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Repo       earningdomain.Repository
	ExpertRepo expertdomain.Repository
}

type Service struct {
	log        *zap.Logger
	repo       earningdomain.Repository
	expertRepo expertdomain.Repository
}

func NewService(p Params) earningdomain.Service {
	return &Service{
		log:        p.Log.Named("earning.service"),
		repo:       p.Repo,
		expertRepo: p.ExpertRepo,
	}
}

func (s *Service) Accrue(ctx context.Context, tx *gorm.DB, earning *earningdomain.ExpertEarning) error {
	inserted, err := s.repo.Upsert(ctx, tx, earning)
	if err != nil {
		return err
	}

	if inserted {
		if err := s.expertRepo.AddTotalEarnings(ctx, tx, earning.ExpertID, earning.Amount); err != nil {
			return err
		}
	}

	return s.expertRepo.RecomputePendingPayout(ctx, tx, earning.ExpertID)
}
