package repo

import (
	"context"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewNetWorthHistoryRepo(db *gorm.DB) *NetWorthHistoryRepo {
	return &NetWorthHistoryRepo{
		Repository: orz.NewRepository[models.NetWorthHistory, string](db),
	}
}

type NetWorthHistoryRepo struct {
	orz.Repository[models.NetWorthHistory, string]
}

// FindByUserOrderByRecordedAt 获取用户净值曲线（按时间升序）
func (r NetWorthHistoryRepo) FindByUserOrderByRecordedAt(ctx context.Context, userID string) ([]models.NetWorthHistory, error) {
	var histories []models.NetWorthHistory
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("user_id = ?", userID).
		Order("recorded_at ASC").
		Find(&histories).Error
	return histories, err
}

// FindLatestIteration 获取最近一次快照的调度周期编号，无记录时返回0
func (r NetWorthHistoryRepo) FindLatestIteration(ctx context.Context) (int, error) {
	var iteration *int
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Select("MAX(iteration)").
		Scan(&iteration).Error
	if err != nil || iteration == nil {
		return 0, err
	}
	return *iteration, nil
}

// DeleteByUser 删除用户的净值历史（账户重置用）
func (r NetWorthHistoryRepo) DeleteByUser(ctx context.Context, userID string) error {
	db := r.GetDB(ctx)
	return db.Where("user_id = ?", userID).Delete(&models.NetWorthHistory{}).Error
}
