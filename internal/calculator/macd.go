package calculator

// MACDResult holds the three aligned MACD series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACDSeries computes macd = EMA(fast) - EMA(slow), signal = EMA(macd, signal)
// and histogram = macd - signal for every bar.
func MACDSeries(closes []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)

	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	sig := EMASeries(macd, signal)

	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = macd[i] - sig[i]
	}
	return MACDResult{MACD: macd, Signal: sig, Histogram: hist}
}
