package repo

import (
	"context"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewInstrumentRepo(db *gorm.DB) *InstrumentRepo {
	return &InstrumentRepo{
		Repository: orz.NewRepository[models.Instrument, string](db),
	}
}

type InstrumentRepo struct {
	orz.Repository[models.Instrument, string]
}

// FindAllOrderByID 获取所有标的
func (r InstrumentRepo) FindAllOrderByID(ctx context.Context) ([]models.Instrument, error) {
	var instruments []models.Instrument
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("id ASC").
		Find(&instruments).Error
	return instruments, err
}

// UpdateMarkPrice 更新标记价格（报价缓存独占的写入路径）
func (r InstrumentRepo) UpdateMarkPrice(ctx context.Context, id string, price float64) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where("id = ?", id).
		Update("mark_price", price).Error
}

// EnsureExists 不存在时创建标的（启动时按配置播种）
func (r InstrumentRepo) EnsureExists(ctx context.Context, instrument *models.Instrument) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where(models.Instrument{ID: instrument.ID}).
		FirstOrCreate(instrument).Error
}
