package domain

const (
	EventNameAttemptTick    = "attempt.tick"
	EventNameAttemptPhase   = "attempt.phase"
	EventNamePaymentSettled = "payment.settled"
)

// EventAttemptTick fires once per countdown second of an active attempt.
type EventAttemptTick struct {
	AttemptID        string
	RemainingSeconds int
}

func (EventAttemptTick) Name() string { return EventNameAttemptTick }

// EventAttemptPhase fires whenever an attempt changes phase.
type EventAttemptPhase struct {
	AttemptID string
	Phase     string
}

func (EventAttemptPhase) Name() string { return EventNameAttemptPhase }

// EventPaymentSettled fires when the payment gateway redirects back with
// a final outcome.
type EventPaymentSettled struct {
	Subject    string
	ClassLevel int
	Succeeded  bool
}

func (EventPaymentSettled) Name() string { return EventNamePaymentSettled }
