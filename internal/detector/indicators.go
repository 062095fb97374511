package detector

// EMA computes the exponential moving average series over prices using the
// recursive form ema[0] = price[0], ema[i] = (price[i]-ema[i-1])*k + ema[i-1]
// with k = 2/(period+1). Returns nil when prices is empty or period < 1.
func EMA(prices []float64, period int) []float64 {
	if len(prices) == 0 || period < 1 {
		return nil
	}
	k := 2.0 / float64(period+1)
	ema := make([]float64, len(prices))
	ema[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		ema[i] = (prices[i]-ema[i-1])*k + ema[i-1]
	}
	return ema
}

// RSI computes the relative strength index over the first period+1 prices.
func RSI(prices []float64, period int) float64 {
	if period < 1 || len(prices) < period+1 {
		return 0
	}
	var gains, losses float64
	for i := 1; i <= period; i++ {
		diff := prices[i] - prices[i-1]
		if diff >= 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}
	gains /= float64(period)
	losses /= float64(period)
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// AverageVolume returns the simple average of the trailing period volumes.
func AverageVolume(volumes []float64, period int) float64 {
	if period < 1 {
		return 0
	}
	if len(volumes) > period {
		volumes = volumes[len(volumes)-period:]
	}
	var sum float64
	for _, v := range volumes {
		sum += v
	}
	return sum / float64(period)
}
