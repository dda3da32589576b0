package domain

// MaxFulfilmentTimes bounds the rolling global chars-per-second window.
const MaxFulfilmentTimes = 10

// Stats is the one aggregate, broker-wide object: a rolling window of
// recent throughput observations and the memoised model-size multiplier
// table consulted by the kudos economy.
type Stats struct {
	FulfilmentTimes  []float64          `json:"fulfilment_times"`
	ModelMultipliers map[string]float64 `json:"model_multipliers"`
}

// NewStats constructs an empty Stats object.
func NewStats() *Stats {
	return &Stats{ModelMultipliers: map[string]float64{}}
}

// RecordFulfilmentTime appends one chars-per-second observation,
// truncating the head once the window would exceed MaxFulfilmentTimes.
func (s *Stats) RecordFulfilmentTime(perf float64) {
	s.FulfilmentTimes = append(s.FulfilmentTimes, perf)
	if len(s.FulfilmentTimes) > MaxFulfilmentTimes {
		s.FulfilmentTimes = s.FulfilmentTimes[len(s.FulfilmentTimes)-MaxFulfilmentTimes:]
	}
}

// RequestAverage returns the mean of the rolling fulfilment-time window,
// rounded to one decimal place to match get_request_avg(), or 0 when no
// observation has ever been recorded.
func (s *Stats) RequestAverage() float64 {
	if len(s.FulfilmentTimes) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.FulfilmentTimes {
		sum += v
	}
	return round1(sum / float64(len(s.FulfilmentTimes)))
}
