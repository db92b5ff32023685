package ta

import (
	talib "github.com/markcheno/go-talib"
)

// RSI 相对强弱指标
func RSI(closes []float64, period int) []float64 {
	return talib.Rsi(closes, period)
}

// EMA 指数移动平均
func EMA(closes []float64, period int) []float64 {
	return talib.Ema(closes, period)
}

// MACD 指数平滑异同移动平均线，返回 (macd, signal, hist)
func MACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) ([]float64, []float64, []float64) {
	return talib.Macd(closes, fastPeriod, slowPeriod, signalPeriod)
}
