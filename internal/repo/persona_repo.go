package repo

import (
	"context"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewPersonaRepo(db *gorm.DB) *PersonaRepo {
	return &PersonaRepo{
		Repository: orz.NewRepository[models.Persona, string](db),
	}
}

type PersonaRepo struct {
	orz.Repository[models.Persona, string]
}

// FindActive 获取所有启用中的AI投资人
func (r PersonaRepo) FindActive(ctx context.Context) ([]models.Persona, error) {
	var personas []models.Persona
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&personas).Error
	return personas, err
}
