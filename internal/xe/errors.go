package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams       = orz.NewError(10400, "参数无效")
	ErrInvalidToken        = orz.NewError(10403, "令牌无效")
	ErrInvalidShareCount   = orz.NewError(10100, "股数无效")
	ErrUnknownInstrument   = orz.NewError(10101, "交易标的不存在")
	ErrAccountNotFound     = orz.NewError(10102, "账户不存在")
	ErrInsufficientFunds   = orz.NewError(10103, "可用资金不足")
	ErrInsufficientShares  = orz.NewError(10104, "持仓股数不足")
	ErrStoreConflict       = orz.NewError(10105, "并发写入冲突，请重试")
	ErrUpstreamUnavailable = orz.NewError(10106, "上游服务暂不可用")
	ErrPersonaNotFound     = orz.NewError(10107, "AI投资人不存在")
	ErrUnknownStrategy     = orz.NewError(10108, "未知的交易策略")
)
