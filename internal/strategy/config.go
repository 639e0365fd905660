package strategy

import (
	"fmt"
)

// Thresholds gate the six decision layers.
type Thresholds struct {
	ADX                       float64 `json:"adx_threshold" yaml:"adx_threshold" mapstructure:"adx_threshold"`
	RSIOversold               float64 `json:"rsi_oversold" yaml:"rsi_oversold" mapstructure:"rsi_oversold"`
	RSIOverbought             float64 `json:"rsi_overbought" yaml:"rsi_overbought" mapstructure:"rsi_overbought"`
	ROCStrong                 float64 `json:"roc_strong_threshold" yaml:"roc_strong_threshold" mapstructure:"roc_strong_threshold"`
	CCI                       float64 `json:"cci_threshold" yaml:"cci_threshold" mapstructure:"cci_threshold"`
	BBWidthExpansionFactor    float64 `json:"bb_width_expansion_factor" yaml:"bb_width_expansion_factor" mapstructure:"bb_width_expansion_factor"`
	VolumeParticipationFactor float64 `json:"volume_participation_factor" yaml:"volume_participation_factor" mapstructure:"volume_participation_factor"`
	ZScoreExtreme             float64 `json:"z_score_extreme_threshold" yaml:"z_score_extreme_threshold" mapstructure:"z_score_extreme_threshold"`
}

// Risk holds the ATR multiples used to size stop, target and partial exits.
type Risk struct {
	BaseSLATRMultiple float64 `json:"base_sl_atr_multiple" yaml:"base_sl_atr_multiple" mapstructure:"base_sl_atr_multiple"`
	BaseTPATRMultiple float64 `json:"base_tp_atr_multiple" yaml:"base_tp_atr_multiple" mapstructure:"base_tp_atr_multiple"`
	PartialExit1Ratio float64 `json:"partial_exit_1_ratio" yaml:"partial_exit_1_ratio" mapstructure:"partial_exit_1_ratio"`
	PartialExit2Ratio float64 `json:"partial_exit_2_ratio" yaml:"partial_exit_2_ratio" mapstructure:"partial_exit_2_ratio"`
}

// Periods are the lookback windows handed to the indicator calculator.
type Periods struct {
	EMAFast    int     `json:"ema_fast" yaml:"ema_fast" mapstructure:"ema_fast"`
	EMASlow    int     `json:"ema_slow" yaml:"ema_slow" mapstructure:"ema_slow"`
	MACDFast   int     `json:"macd_fast" yaml:"macd_fast" mapstructure:"macd_fast"`
	MACDSlow   int     `json:"macd_slow" yaml:"macd_slow" mapstructure:"macd_slow"`
	MACDSignal int     `json:"macd_signal" yaml:"macd_signal" mapstructure:"macd_signal"`
	RSI        int     `json:"rsi" yaml:"rsi" mapstructure:"rsi"`
	ROC        int     `json:"roc" yaml:"roc" mapstructure:"roc"`
	CCI        int     `json:"cci" yaml:"cci" mapstructure:"cci"`
	ADX        int     `json:"adx" yaml:"adx" mapstructure:"adx"`
	BB         int     `json:"bb" yaml:"bb" mapstructure:"bb"`
	BBStdDev   float64 `json:"bb_std" yaml:"bb_std" mapstructure:"bb_std"`
	ATR        int     `json:"atr" yaml:"atr" mapstructure:"atr"`
	VolumeSMA  int     `json:"volume_sma" yaml:"volume_sma" mapstructure:"volume_sma"`
	ZScore     int     `json:"z_score" yaml:"z_score" mapstructure:"z_score"`
}

// Config is the full strategy bundle for one analysis request. It is passed
// by value and never modified after construction.
type Config struct {
	Thresholds       Thresholds `json:"thresholds" yaml:"thresholds" mapstructure:"thresholds"`
	Risk             Risk       `json:"risk" yaml:"risk" mapstructure:"risk"`
	Periods          Periods    `json:"periods" yaml:"periods" mapstructure:"periods"`
	MinWarmupCandles int        `json:"min_warmup_candles" yaml:"min_warmup_candles" mapstructure:"min_warmup_candles"`
}

const DefaultMinWarmupCandles = 100

// Default returns the stock scalping configuration.
func Default() Config {
	return Config{
		Thresholds: Thresholds{
			ADX:                       25.0,
			RSIOversold:               30.0,
			RSIOverbought:             70.0,
			ROCStrong:                 2.0,
			CCI:                       100.0,
			BBWidthExpansionFactor:    1.2,
			VolumeParticipationFactor: 1.5,
			ZScoreExtreme:             2.0,
		},
		Risk: Risk{
			BaseSLATRMultiple: 1.5,
			BaseTPATRMultiple: 3.0,
			PartialExit1Ratio: 1.5,
			PartialExit2Ratio: 2.5,
		},
		Periods: Periods{
			EMAFast:    9,
			EMASlow:    21,
			MACDFast:   8,
			MACDSlow:   13,
			MACDSignal: 21,
			RSI:        7,
			ROC:        10,
			CCI:        14,
			ADX:        14,
			BB:         20,
			BBStdDev:   2,
			ATR:        14,
			VolumeSMA:  20,
			ZScore:     20,
		},
		MinWarmupCandles: DefaultMinWarmupCandles,
	}
}

// WithDefaults fills every zero field from Default, leaving explicit values alone.
func (c Config) WithDefaults() Config {
	def := Default()
	fillF := func(dst *float64, v float64) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillI := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	t, dt := &c.Thresholds, def.Thresholds
	fillF(&t.ADX, dt.ADX)
	fillF(&t.RSIOversold, dt.RSIOversold)
	fillF(&t.RSIOverbought, dt.RSIOverbought)
	fillF(&t.ROCStrong, dt.ROCStrong)
	fillF(&t.CCI, dt.CCI)
	fillF(&t.BBWidthExpansionFactor, dt.BBWidthExpansionFactor)
	fillF(&t.VolumeParticipationFactor, dt.VolumeParticipationFactor)
	fillF(&t.ZScoreExtreme, dt.ZScoreExtreme)

	r, dr := &c.Risk, def.Risk
	fillF(&r.BaseSLATRMultiple, dr.BaseSLATRMultiple)
	fillF(&r.BaseTPATRMultiple, dr.BaseTPATRMultiple)
	fillF(&r.PartialExit1Ratio, dr.PartialExit1Ratio)
	fillF(&r.PartialExit2Ratio, dr.PartialExit2Ratio)

	p, dp := &c.Periods, def.Periods
	fillI(&p.EMAFast, dp.EMAFast)
	fillI(&p.EMASlow, dp.EMASlow)
	fillI(&p.MACDFast, dp.MACDFast)
	fillI(&p.MACDSlow, dp.MACDSlow)
	fillI(&p.MACDSignal, dp.MACDSignal)
	fillI(&p.RSI, dp.RSI)
	fillI(&p.ROC, dp.ROC)
	fillI(&p.CCI, dp.CCI)
	fillI(&p.ADX, dp.ADX)
	fillI(&p.BB, dp.BB)
	fillF(&p.BBStdDev, dp.BBStdDev)
	fillI(&p.ATR, dp.ATR)
	fillI(&p.VolumeSMA, dp.VolumeSMA)
	fillI(&p.ZScore, dp.ZScore)

	fillI(&c.MinWarmupCandles, def.MinWarmupCandles)
	return c
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	t := c.Thresholds
	if t.RSIOversold >= t.RSIOverbought {
		return fmt.Errorf("rsi_oversold (%g) must be below rsi_overbought (%g)", t.RSIOversold, t.RSIOverbought)
	}
	for name, v := range map[string]float64{
		"adx_threshold":               t.ADX,
		"roc_strong_threshold":        t.ROCStrong,
		"cci_threshold":               t.CCI,
		"bb_width_expansion_factor":   t.BBWidthExpansionFactor,
		"volume_participation_factor": t.VolumeParticipationFactor,
		"z_score_extreme_threshold":   t.ZScoreExtreme,
		"base_sl_atr_multiple":        c.Risk.BaseSLATRMultiple,
		"base_tp_atr_multiple":        c.Risk.BaseTPATRMultiple,
		"partial_exit_1_ratio":        c.Risk.PartialExit1Ratio,
		"partial_exit_2_ratio":        c.Risk.PartialExit2Ratio,
		"periods.bb_std":              c.Periods.BBStdDev,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	p := c.Periods
	for name, v := range map[string]int{
		"periods.ema_fast":    p.EMAFast,
		"periods.ema_slow":    p.EMASlow,
		"periods.macd_fast":   p.MACDFast,
		"periods.macd_slow":   p.MACDSlow,
		"periods.macd_signal": p.MACDSignal,
		"periods.rsi":         p.RSI,
		"periods.roc":         p.ROC,
		"periods.cci":         p.CCI,
		"periods.adx":         p.ADX,
		"periods.bb":          p.BB,
		"periods.atr":         p.ATR,
		"periods.volume_sma":  p.VolumeSMA,
		"periods.z_score":     p.ZScore,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	if p.EMAFast >= p.EMASlow {
		return fmt.Errorf("periods.ema_fast must be shorter than periods.ema_slow")
	}
	if p.MACDFast >= p.MACDSlow {
		return fmt.Errorf("periods.macd_fast must be shorter than periods.macd_slow")
	}
	if c.MinWarmupCandles < 0 {
		return fmt.Errorf("min_warmup_candles must be >= 0")
	}
	return nil
}

// Provider hands out the configuration in effect for a new request.
type Provider interface {
	Current() Config
}

// Static is a Provider that never changes.
type Static Config

func (s Static) Current() Config {
	return Config(s)
}
