package formulas

import (
	"github.com/markcheno/go-talib"
)

// SMA computes a simple moving average over the values. The first
// period-1 entries carry no average and are returned as nil; talib fills
// them with zeros, which would read as real prices on a chart.
func SMA(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period < 2 || len(values) < period {
		return out
	}

	sma := talib.Sma(values, period)
	for i := period - 1; i < len(sma); i++ {
		v := sma[i]
		out[i] = &v
	}
	return out
}
