package circuitbreaker

import "github.com/sony/gobreaker"

var (
	// MaxNumOfFailingRequests is the minimum number of requests observed
	// before the breaker is allowed to trip.
	MaxNumOfFailingRequests = 10
	// FailingRatio is the failures/requests ratio at which the breaker trips.
	FailingRatio = 0.6
)

// NewCircuitBreaker returns a named *gobreaker.CircuitBreaker that trips once
// the overall number of requests exceeds the tweakable
// MaxNumOfFailingRequests cap and the failing ratio has met FailingRatio.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: name,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return int(counts.Requests) > MaxNumOfFailingRequests && ratio >= FailingRatio
		},
	})
}
