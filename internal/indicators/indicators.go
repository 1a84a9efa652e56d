package indicators

import (
	"math"

	"egx-trading-bot/internal/marketdata"
)

// Config holds lookback windows and thresholds for indicator computation
type Config struct {
	RSIPeriod        int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
	BBPeriod         int
	BBStdDev         float64
	SMAShort         int
	SMALong          int
	EMAShort         int
	EMALong          int
	VolumeMAPeriod   int
	VolumeSpikeRatio float64
}

// DefaultConfig returns the standard indicator parameters
func DefaultConfig() Config {
	return Config{
		RSIPeriod:        14,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		BBPeriod:         20,
		BBStdDev:         2.0,
		SMAShort:         20,
		SMALong:          50,
		EMAShort:         12,
		EMALong:          26,
		VolumeMAPeriod:   20,
		VolumeSpikeRatio: 1.5,
	}
}

// Snapshot is the full indicator state for a ticker at the latest bar
type Snapshot struct {
	Ticker    string  `json:"ticker"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`

	RSI float64 `json:"rsi"`

	MACD          float64 `json:"macd"`
	MACDSignal    float64 `json:"macd_signal"`
	MACDHistogram float64 `json:"macd_histogram"`

	BBUpper  float64 `json:"bb_upper"`
	BBMiddle float64 `json:"bb_middle"`
	BBLower  float64 `json:"bb_lower"`

	SMAShort float64 `json:"sma_short"`
	SMALong  float64 `json:"sma_long"`
	EMAShort float64 `json:"ema_short"`
	EMALong  float64 `json:"ema_long"`

	SMATrendUp         bool `json:"sma_trend_up"`
	EMATrendUp         bool `json:"ema_trend_up"`
	PriceAboveSMAShort bool `json:"price_above_sma_short"`
	PriceAboveSMALong  bool `json:"price_above_sma_long"`

	CurrentVolume float64 `json:"current_volume"`
	AverageVolume float64 `json:"average_volume"`
	VolumeRatio   float64 `json:"volume_ratio"`
	VolumeSpike   bool    `json:"volume_spike"`
}

// Compute derives the full indicator snapshot from a candle series.
// Returns false when the series is shorter than the longest lookback.
func Compute(ticker string, candles []marketdata.Candle, cfg Config) (*Snapshot, bool) {
	if len(candles) < cfg.SMALong {
		return nil, false
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	s := &Snapshot{
		Ticker:    ticker,
		Price:     round2(closes[len(closes)-1]),
		PrevClose: round2(closes[len(closes)-2]),
	}

	s.RSI = round2(wilderRSI(closes, cfg.RSIPeriod))

	macd, signal := macdLine(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	s.MACD = round4(macd)
	s.MACDSignal = round4(signal)
	s.MACDHistogram = round4(macd - signal)

	mid, dev := smaStdDev(closes, cfg.BBPeriod)
	s.BBMiddle = round2(mid)
	s.BBUpper = round2(mid + cfg.BBStdDev*dev)
	s.BBLower = round2(mid - cfg.BBStdDev*dev)

	s.SMAShort = round2(sma(closes, cfg.SMAShort))
	s.SMALong = round2(sma(closes, cfg.SMALong))
	s.EMAShort = round2(emaLast(closes, cfg.EMAShort))
	s.EMALong = round2(emaLast(closes, cfg.EMALong))

	s.SMATrendUp = s.SMAShort > s.SMALong
	s.EMATrendUp = s.EMAShort > s.EMALong
	s.PriceAboveSMAShort = s.Price > s.SMAShort
	s.PriceAboveSMALong = s.Price > s.SMALong

	s.CurrentVolume = volumes[len(volumes)-1]
	s.AverageVolume = sma(volumes, cfg.VolumeMAPeriod)
	if s.AverageVolume > 0 {
		s.VolumeRatio = round2(s.CurrentVolume / s.AverageVolume)
	}
	s.VolumeSpike = s.VolumeRatio > cfg.VolumeSpikeRatio

	return s, true
}

// wilderRSI computes RSI with Wilder smoothing over the full series
func wilderRSI(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// emaSeries returns the EMA at every index where it is defined.
// The seed is the simple average of the first period values.
func emaSeries(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}

	out := make([]float64, 0, len(values)-period+1)
	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out = append(out, seed)

	k := 2.0 / float64(period+1)
	ema := seed
	for i := period; i < len(values); i++ {
		ema = values[i]*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

func emaLast(values []float64, period int) float64 {
	series := emaSeries(values, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// macdLine computes the MACD line and its signal line at the latest bar.
// The signal is an EMA of the MACD series itself, so the MACD series is
// materialized over the aligned tail where both fast and slow EMAs exist.
func macdLine(closes []float64, fast, slow, signalPeriod int) (float64, float64) {
	fastSeries := emaSeries(closes, fast)
	slowSeries := emaSeries(closes, slow)
	if len(slowSeries) == 0 || len(fastSeries) == 0 {
		return 0, 0
	}

	// slowSeries starts later; align fastSeries to its tail
	offset := len(fastSeries) - len(slowSeries)
	macd := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macd[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries := emaSeries(macd, signalPeriod)
	last := macd[len(macd)-1]
	if len(signalSeries) == 0 {
		return last, last
	}
	return last, signalSeries[len(signalSeries)-1]
}

func sma(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// smaStdDev returns the mean and population standard deviation of the
// last period values
func smaStdDev(values []float64, period int) (float64, float64) {
	if len(values) < period {
		return 0, 0
	}
	window := values[len(values)-period:]
	mean := sma(values, period)

	var variance float64
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(period)

	return mean, math.Sqrt(variance)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
