package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Equipment, error)
	FindByNormalizedCode(ctx context.Context, db *gorm.DB, code string) ([]Equipment, error)
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]Equipment, error)
}
