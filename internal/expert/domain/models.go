// Package domain contains the settlement-facing view of an expert.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Expert is the per-expert settlement state. TotalEarnings and PendingPayout
// are denormalized in minor units; PendingPayout is always recomputed from
// the earnings table, never incremented.
type Expert struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	Name             string       `gorm:"type:text;not null"`
	Email            string       `gorm:"type:text;not null"`
	Active           bool         `gorm:"not null;default:true"`
	PayoutAccountRef string       `gorm:"type:text"`
	PayoutEnabled    bool         `gorm:"not null;default:false"`
	TotalEarnings    int64        `gorm:"not null;default:0"`
	PendingPayout    int64        `gorm:"not null;default:0"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Expert) TableName() string { return "experts" }
