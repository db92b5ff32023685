package repo

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqlRecorder 记录执行过的SQL语句，用于断言生成的语句形态
type sqlRecorder struct {
	gormlogger.Interface

	mu         sync.Mutex
	statements []string
}

func newSQLRecorder() *sqlRecorder {
	return &sqlRecorder{Interface: gormlogger.Discard}
}

func (r *sqlRecorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, _ := fc()
	r.mu.Lock()
	r.statements = append(r.statements, sql)
	r.mu.Unlock()
}

func (r *sqlRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statements) == 0 {
		return ""
	}
	return r.statements[len(r.statements)-1]
}

func newHoldingTestDB(t *testing.T, recorder *sqlRecorder) *gorm.DB {
	t.Helper()

	conf := &gorm.Config{}
	if recorder != nil {
		conf.Logger = recorder
	}
	db, err := gorm.Open(sqlite.Open("file::memory:"), conf)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.Holding{}))
	return db
}

func seedHolding(t *testing.T, db *gorm.DB, shares, invested float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Holding{
		UserID:        "alice",
		InstrumentID:  "acme",
		SharesOwned:   shares,
		TotalInvested: invested,
	}).Error)
}

func TestHoldingRepo_ReduceSharesProRata_PartialSell(t *testing.T) {
	db := newHoldingTestDB(t, nil)
	repo := NewHoldingRepo(db)
	seedHolding(t, db, 10, 1000)

	ok, err := repo.ReduceSharesProRata(context.Background(), "alice", "acme", 4)
	require.NoError(t, err)
	require.True(t, ok)

	var holding models.Holding
	require.NoError(t, db.Where("user_id = ? AND instrument_id = ?", "alice", "acme").First(&holding).Error)
	assert.InDelta(t, 6.0, holding.SharesOwned, 1e-9)
	// 成本按卖出前的股数占比扣减：1000 * 6/10
	assert.InDelta(t, 600.0, holding.TotalInvested, 1e-9)
}

func TestHoldingRepo_ReduceSharesProRata_FullSellZeroesInvested(t *testing.T) {
	db := newHoldingTestDB(t, nil)
	repo := NewHoldingRepo(db)
	seedHolding(t, db, 10, 1000)

	ok, err := repo.ReduceSharesProRata(context.Background(), "alice", "acme", 10)
	require.NoError(t, err)
	require.True(t, ok)

	var holding models.Holding
	require.NoError(t, db.Where("user_id = ? AND instrument_id = ?", "alice", "acme").First(&holding).Error)
	assert.InDelta(t, 0.0, holding.SharesOwned, 1e-9)
	assert.InDelta(t, 0.0, holding.TotalInvested, 1e-9)
}

func TestHoldingRepo_ReduceSharesProRata_InsufficientShares(t *testing.T) {
	db := newHoldingTestDB(t, nil)
	repo := NewHoldingRepo(db)
	seedHolding(t, db, 3, 300)

	ok, err := repo.ReduceSharesProRata(context.Background(), "alice", "acme", 5)
	require.NoError(t, err)
	require.False(t, ok)

	var holding models.Holding
	require.NoError(t, db.Where("user_id = ? AND instrument_id = ?", "alice", "acme").First(&holding).Error)
	assert.InDelta(t, 3.0, holding.SharesOwned, 1e-9)
	assert.InDelta(t, 300.0, holding.TotalInvested, 1e-9)
}

// MySQL 从左到右用已更新的值求值 SET 子句，成本扣减必须先于股数递减。
func TestHoldingRepo_ReduceSharesProRata_ProrationAssignedFirst(t *testing.T) {
	recorder := newSQLRecorder()
	db := newHoldingTestDB(t, recorder)
	repo := NewHoldingRepo(db)
	seedHolding(t, db, 10, 1000)

	ok, err := repo.ReduceSharesProRata(context.Background(), "alice", "acme", 4)
	require.NoError(t, err)
	require.True(t, ok)

	sql := recorder.last()
	require.Contains(t, sql, "UPDATE")
	investedAt := strings.Index(sql, "total_invested = total_invested")
	sharesAt := strings.Index(sql, "shares_owned = shares_owned")
	require.GreaterOrEqual(t, investedAt, 0)
	require.GreaterOrEqual(t, sharesAt, 0)
	assert.Less(t, investedAt, sharesAt)
	// 扣减比例的分母读的是卖出前的股数，不得引用已递减后的列
	assert.NotContains(t, sql, "(shares_owned - ")
}
