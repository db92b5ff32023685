package repo

import (
	"context"
	"time"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewHoldingRepo(db *gorm.DB) *HoldingRepo {
	return &HoldingRepo{
		Repository: orz.NewRepository[models.Holding, string](db),
	}
}

type HoldingRepo struct {
	orz.Repository[models.Holding, string]
}

// FindByUser 获取用户的全部持仓
func (r HoldingRepo) FindByUser(ctx context.Context, userID string) ([]models.Holding, error) {
	var holdings []models.Holding
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("user_id = ?", userID).
		Order("instrument_id ASC").
		Find(&holdings).Error
	return holdings, err
}

// FindOne 获取用户在单一标的上的持仓
func (r HoldingRepo) FindOne(ctx context.Context, userID, instrumentID string) (m models.Holding, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("user_id = ? AND instrument_id = ?", userID, instrumentID).
		First(&m).Error
	return m, err
}

// UpsertAdd 买入落仓：不存在则新建，存在则累加股数与成本
func (r HoldingRepo) UpsertAdd(ctx context.Context, userID, instrumentID string, shares, cost float64) error {
	db := r.GetDB(ctx)
	holding := models.Holding{
		UserID:        userID,
		InstrumentID:  instrumentID,
		SharesOwned:   shares,
		TotalInvested: cost,
	}
	return db.Table(r.GetTableName()).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "instrument_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"shares_owned":   gorm.Expr("shares_owned + ?", shares),
			"total_invested": gorm.Expr("total_invested + ?", cost),
			"updated_at":     time.Now(),
		}),
	}).Create(&holding).Error
}

// ReduceSharesProRata 卖出扣仓：股数不足时不产生任何写入，返回 false。
// 成本扣减必须排在股数递减之前：MySQL 按从左到右的已更新值求值 SET 子句，
// 颠倒顺序会让按比例扣减读到已扣减后的股数，全仓卖出时除零。
func (r HoldingRepo) ReduceSharesProRata(ctx context.Context, userID, instrumentID string, shares float64) (bool, error) {
	db := r.GetDB(ctx)
	res := db.Exec(
		"UPDATE "+r.GetTableName()+" SET"+
			" total_invested = total_invested - total_invested * ? / shares_owned,"+
			" shares_owned = shares_owned - ?,"+
			" updated_at = ?"+
			" WHERE user_id = ? AND instrument_id = ? AND shares_owned >= ?",
		shares, shares, time.Now(), userID, instrumentID, shares,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteIfEmpty 清仓后删除空持仓行，维持“行存在即股数大于零”的不变式
func (r HoldingRepo) DeleteIfEmpty(ctx context.Context, userID, instrumentID string) error {
	db := r.GetDB(ctx)
	return db.Where("user_id = ? AND instrument_id = ? AND shares_owned <= ?", userID, instrumentID, 1e-9).
		Delete(&models.Holding{}).Error
}

// DeleteByUser 删除用户的全部持仓（账户重置用）
func (r HoldingRepo) DeleteByUser(ctx context.Context, userID string) error {
	db := r.GetDB(ctx)
	return db.Where("user_id = ?", userID).Delete(&models.Holding{}).Error
}
