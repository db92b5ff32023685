package repo

import (
	"context"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewTransactionRepo(db *gorm.DB) *TransactionRepo {
	return &TransactionRepo{
		Repository: orz.NewRepository[models.Transaction, string](db),
	}
}

type TransactionRepo struct {
	orz.Repository[models.Transaction, string]
}

// FindRecentByUser 获取用户最近的成交记录
func (r TransactionRepo) FindRecentByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("user_id = ?", userID).
		Order("executed_at DESC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

// CountByUser 统计用户成交笔数
func (r TransactionRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// DeleteByUser 删除用户的全部成交记录（账户重置用，唯一允许的删除路径）
func (r TransactionRepo) DeleteByUser(ctx context.Context, userID string) error {
	db := r.GetDB(ctx)
	return db.Where("user_id = ?", userID).Delete(&models.Transaction{}).Error
}
