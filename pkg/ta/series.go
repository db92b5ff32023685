package ta

func Last(s []float64, position int) float64 {
	return s[len(s)-1-position]
}

func LastValues(s []float64, size int) []float64 {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

func Crossover(s1, s2 []float64) bool {
	return Last(s1, 0) > Last(s2, 0) && Last(s1, 1) <= Last(s2, 1)
}

func Crossunder(s1, s2 []float64) bool {
	return Last(s1, 0) <= Last(s2, 0) && Last(s1, 1) > Last(s2, 1)
}

// Change 计算序列最近 period 个点的涨跌幅
func Change(s []float64, period int) float64 {
	if len(s) <= period {
		return 0
	}
	base := Last(s, period)
	if base == 0 {
		return 0
	}
	return (Last(s, 0) - base) / base
}
