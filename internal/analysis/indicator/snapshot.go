package indicator

import "time"

// Snapshot is one enriched bar. Raw bar fields are always present; derived
// fields are absent until their indicator has warmed up.
type Snapshot struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`

	EMAFast    Value `json:"ema_fast"`
	EMASlow    Value `json:"ema_slow"`
	MACD       Value `json:"macd"`
	MACDSignal Value `json:"macd_signal"`
	// Oscillator is the RSI-family momentum reading.
	Oscillator Value `json:"oscillator"`
	ROC        Value `json:"roc"`
	CCI        Value `json:"cci"`
	ADX        Value `json:"adx"`
	BBUpper    Value `json:"bb_upper"`
	BBMiddle   Value `json:"bb_middle"`
	BBLower    Value `json:"bb_lower"`
	BBWidth    Value `json:"bb_width"`
	BBWidthSMA Value `json:"bb_width_sma"`
	ATR        Value `json:"atr"`
	VolumeSMA  Value `json:"volume_sma"`
	OBV        Value `json:"obv"`
	ZScore     Value `json:"z_score"`
	VWAP       Value `json:"vwap"`
}
