package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	expertdomain "github.com/visalane/visalane/internal/expert/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() expertdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, expert *expertdomain.Expert) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO experts (
			id, name, email, active, payout_account_ref, payout_enabled,
			total_earnings, pending_payout, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expert.ID,
		expert.Name,
		expert.Email,
		expert.Active,
		expert.PayoutAccountRef,
		expert.PayoutEnabled,
		expert.TotalEarnings,
		expert.PendingPayout,
		expert.CreatedAt,
		expert.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*expertdomain.Expert, error) {
	var expert expertdomain.Expert
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, active, payout_account_ref, payout_enabled,
		        total_earnings, pending_payout, created_at, updated_at
		 FROM experts
		 WHERE id = ?`,
		id,
	).Scan(&expert).Error
	if err != nil {
		return nil, err
	}
	if expert.ID == 0 {
		return nil, nil
	}
	return &expert, nil
}

func (r *repo) AddTotalEarnings(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE experts
		 SET total_earnings = total_earnings + ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		amount,
		id,
	).Error
}

func (r *repo) RecomputePendingPayout(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE experts
		 SET pending_payout = (
		     SELECT COALESCE(SUM(amount), 0)
		     FROM expert_earnings
		     WHERE expert_id = ? AND status = 'pending'
		 ),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		id,
		id,
	).Error
}
