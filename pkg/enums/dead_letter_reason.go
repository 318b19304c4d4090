package enums

// DeadLetterReason records why the outbox relay stopped retrying a row.
type DeadLetterReason string

const (
	// DeadLetterExhausted means every publish attempt failed transiently.
	DeadLetterExhausted DeadLetterReason = "max_attempts"
	// DeadLetterRejected means the row can never be delivered as stored.
	DeadLetterRejected DeadLetterReason = "non_retryable"
)

func (r DeadLetterReason) IsValid() bool {
	return r == DeadLetterExhausted || r == DeadLetterRejected
}
