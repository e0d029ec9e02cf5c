package bus

import (
	"time"

	"github.com/MikeMC777/enos-storefront/internal/clock"
)

const (
	CartUpdateChannel       = "CartUpdate"
	PerformanceAlertChannel = "PerformanceAlert"
)

// CartUpdateEvent says the cart changed. It carries no cart data: receivers
// refetch the authoritative cart.
type CartUpdateEvent struct {
	SourceTag string `json:"sourceTag"`
	Timestamp string `json:"timestamp"`
}

// NewCartUpdate stamps an event for source.
func NewCartUpdate(source string, c clock.Clock) CartUpdateEvent {
	return CartUpdateEvent{SourceTag: source, Timestamp: clock.Stamp(c)}
}

// PerformanceAlert is raised when a remote call exceeds its latency budget.
type PerformanceAlert struct {
	Operation string        `json:"operation"`
	Elapsed   time.Duration `json:"elapsed"`
	Threshold time.Duration `json:"threshold"`
	Timestamp string        `json:"timestamp"`
}
