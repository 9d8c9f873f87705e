package watcher

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventBalancesUpdated EventType = "balances_updated"
	EventFetchFailed     EventType = "fetch_failed"
)

// Event represents a monitoring event. Data carries a models.BalanceData
// for both event types.
type Event struct {
	Type EventType
	Data interface{}
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
