package service

import (
	"context"
	"sort"

	"github.com/dushixiang/simvest/internal/repo"
	"github.com/go-orz/orz"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	UserID     string  `json:"user_id"`
	Nickname   string  `json:"nickname"`
	IsBot      bool    `json:"is_bot"`
	TotalValue float64 `json:"total_value"`
}

// LeaderboardService 排行榜聚合服务，只读，估值全部来自组合估值服务
type LeaderboardService struct {
	logger *zap.Logger

	*orz.Service
	*repo.AccountRepo

	portfolioService *PortfolioService
}

// NewLeaderboardService 创建排行榜服务
func NewLeaderboardService(db *gorm.DB, portfolioService *PortfolioService, logger *zap.Logger) *LeaderboardService {
	return &LeaderboardService{
		logger:           logger,
		Service:          orz.NewService(db),
		AccountRepo:      repo.NewAccountRepo(db),
		portfolioService: portfolioService,
	}
}

// Rank 计算所有参与者的净值排名。按净值降序，净值相同时先注册者在前。
// limit <= 0 表示不限制条数。
func (s *LeaderboardService) Rank(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	accounts, err := s.AccountRepo.FindAllOrderByCreatedAt(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(accounts))
	for _, account := range accounts {
		valuation, err := s.portfolioService.Valuate(ctx, account.ID)
		if err != nil {
			// 单个账户估值失败不应拖垮整个榜单
			s.logger.Warn("failed to valuate account for leaderboard",
				zap.String("user_id", account.ID),
				zap.Error(err))
			continue
		}

		entries = append(entries, LeaderboardEntry{
			UserID:     account.ID,
			Nickname:   account.Nickname,
			IsBot:      account.IsBot,
			TotalValue: valuation.TotalValue,
		})
	}

	// 输入已按创建时间升序，稳定排序保证同净值时先注册者在前
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalValue > entries[j].TotalValue
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
