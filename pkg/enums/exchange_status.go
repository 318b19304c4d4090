package enums

import "slices"

// ExchangeStatus tracks a shift exchange request. Pending is the only
// non-terminal state.
type ExchangeStatus string

const (
	ExchangeStatusPending  ExchangeStatus = "pending"
	ExchangeStatusAccepted ExchangeStatus = "accepted"
	ExchangeStatusRejected ExchangeStatus = "rejected"
)

var exchangeStatuses = []ExchangeStatus{ExchangeStatusPending, ExchangeStatusAccepted, ExchangeStatusRejected}

func (s ExchangeStatus) String() string { return string(s) }

func (s ExchangeStatus) IsValid() bool { return slices.Contains(exchangeStatuses, s) }

func (s ExchangeStatus) IsTerminal() bool {
	return s == ExchangeStatusAccepted || s == ExchangeStatusRejected
}

func (s ExchangeStatus) CanTransitionTo(next ExchangeStatus) bool {
	return s == ExchangeStatusPending && next.IsTerminal()
}

func ParseExchangeStatus(raw string) (ExchangeStatus, error) {
	return parse("exchange status", raw, exchangeStatuses)
}
