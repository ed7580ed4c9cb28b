package model

// IndicatorSnapshot holds the indicators computed from one series for one
// evaluation. A false Valid flag means the indicator is undefined for the
// series, which is different from a zero value.
type IndicatorSnapshot struct {
	RSI      float64
	RSIValid bool

	MACD      float64
	Signal    float64
	Histogram float64
	MACDValid bool

	// Breakout and the support/resistance levels need a full lookback window;
	// LevelsValid is false when the series was too short to compute them.
	Breakout       bool
	Resistance     float64
	Support        float64
	NearResistance bool
	NearSupport    bool
	LevelsValid    bool

	VolumeRatio      float64
	VolumeRatioValid bool
}
