package compensation

import (
	"github.com/hashicorp/go-multierror"
)

// Failure describes an operation that could not be compensated
type Failure struct {
	OperationID string `json:"operationId"`
	Name        string `json:"name"`
	Err         error  `json:"-"`
	Message     string `json:"error"`
}

func (f *Failure) Error() string {
	return f.Name + " (" + f.OperationID + "): " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Report is the outcome of a rollback. Entries are listed in execution
// order of the compensations, i.e. reverse order of the operations.
type Report struct {
	TransactionID string     `json:"transactionId"`
	Compensated   []string   `json:"compensated,omitempty"`
	Skipped       []string   `json:"skipped,omitempty"`
	Failures      []*Failure `json:"failures,omitempty"`
}

// Uncompensated returns ids of operations whose compensation failed
func (r *Report) Uncompensated() []string {
	if r == nil {
		return nil
	}
	ret := make([]string, 0, len(r.Failures))
	for _, failure := range r.Failures {
		ret = append(ret, failure.OperationID)
	}
	return ret
}

// HasFailures reports whether any compensation failed
func (r *Report) HasFailures() bool {
	return r != nil && len(r.Failures) > 0
}

// Err returns all failures as a single error or nil
func (r *Report) Err() error {
	if !r.HasFailures() {
		return nil
	}
	var merged *multierror.Error
	for _, failure := range r.Failures {
		merged = multierror.Append(merged, failure)
	}
	return merged.ErrorOrNil()
}
