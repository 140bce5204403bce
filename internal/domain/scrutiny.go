package domain

// Condition classifies the outcome of the one-hop scrutiny check.
type Condition string

const (
	// ConditionLoopDetected means the recipient's most recent prior funding
	// came from the same wallet that just paid it.
	ConditionLoopDetected Condition = "LOOP_DETECTED"

	// ConditionFirstTimeActivity means the recipient has no identifiable
	// prior inflow history.
	ConditionFirstTimeActivity Condition = "FIRST_TIME_ACTIVITY"

	// ConditionNone means the recipient's prior funding came from an
	// unrelated address.
	ConditionNone Condition = "NONE"
)

// ScrutinyResult is the verdict of the scrutiny check for one recipient.
// Derived per event, never persisted on its own.
type ScrutinyResult struct {
	Condition      Condition
	AlertTriggered bool

	// PrevInflowSource and PrevInflowSignature identify the recipient's
	// most recent prior funding, when one was found.
	PrevInflowSource    string
	PrevInflowSignature string

	Explanation string
}
