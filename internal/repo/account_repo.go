package repo

import (
	"context"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{
		Repository: orz.NewRepository[models.Account, string](db),
	}
}

type AccountRepo struct {
	orz.Repository[models.Account, string]
}

// DebitCashIfSufficient 扣减可用资金。余额不足时不产生任何写入，返回 false。
// 条件更新在单条语句内完成读取与写回，依赖存储层保证原子性。
func (r AccountRepo) DebitCashIfSufficient(ctx context.Context, id string, amount float64) (bool, error) {
	db := r.GetDB(ctx)
	res := db.Table(r.GetTableName()).
		Where("id = ? AND cash_available >= ?", id, amount).
		Update("cash_available", gorm.Expr("cash_available - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreditCash 增加可用资金
func (r AccountRepo) CreditCash(ctx context.Context, id string, amount float64) error {
	db := r.GetDB(ctx)
	res := db.Table(r.GetTableName()).
		Where("id = ?", id).
		Update("cash_available", gorm.Expr("cash_available + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ResetCash 将资金恢复为初始拨付额
func (r AccountRepo) ResetCash(ctx context.Context, id string, grant float64) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"cash_available": grant,
			"cash_deposited": grant,
		}).Error
}

// FindAllOrderByCreatedAt 获取所有账户（按创建时间升序，排行榜同分排序依据）
func (r AccountRepo) FindAllOrderByCreatedAt(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}
