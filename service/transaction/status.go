package transaction

// Status is a transaction lifecycle state
type Status string

const (
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolledBack"
	StatusFailed     Status = "failed"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusRolledBack, StatusFailed},
	StatusActive:  {StatusCommitted, StatusRolledBack, StatusFailed},
}

// IsTerminal reports whether s never transitions again
func (s Status) IsTerminal() bool {
	return s == StatusCommitted || s == StatusRolledBack || s == StatusFailed
}

// CanTransition reports whether s may change to next
func (s Status) CanTransition(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsolationLevel is recorded on a transaction for callers; the ledger does
// not enforce isolation.
type IsolationLevel string

const (
	ReadUncommitted IsolationLevel = "readUncommitted"
	ReadCommitted   IsolationLevel = "readCommitted"
	RepeatableRead  IsolationLevel = "repeatableRead"
	Serializable    IsolationLevel = "serializable"
)
