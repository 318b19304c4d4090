package enums

// ExchangeAction is the decision carried by an emailed exchange link.
type ExchangeAction string

const (
	ExchangeActionAccept ExchangeAction = "accept"
	ExchangeActionReject ExchangeAction = "reject"
)

func (a ExchangeAction) IsValid() bool {
	return a == ExchangeActionAccept || a == ExchangeActionReject
}

// Status is the terminal status the action moves a request to.
func (a ExchangeAction) Status() ExchangeStatus {
	if a == ExchangeActionAccept {
		return ExchangeStatusAccepted
	}
	return ExchangeStatusRejected
}

func ParseExchangeAction(raw string) (ExchangeAction, error) {
	return parse("exchange action", raw, []ExchangeAction{ExchangeActionAccept, ExchangeActionReject})
}
