package errs

import (
	"github.com/hashicorp/go-multierror"
)

// Aggregate collects independent per-row or per-candidate faults into a
// single error, the "collect many, return one" shape Kubernetes-flavored
// codebases fill with apimachinery's aggregate error helper. A nil result
// means no faults were recorded.
type Aggregate struct {
	merr *multierror.Error
}

func NewAggregate() *Aggregate {
	return &Aggregate{}
}

func (a *Aggregate) Add(err error) {
	if err == nil {
		return
	}
	a.merr = multierror.Append(a.merr, err)
}

// ErrorOrNil returns the aggregated error, or nil if nothing was added.
func (a *Aggregate) ErrorOrNil() error {
	if a == nil {
		return nil
	}
	return a.merr.ErrorOrNil()
}

// Len reports how many faults have been collected.
func (a *Aggregate) Len() int {
	if a == nil || a.merr == nil {
		return 0
	}
	return len(a.merr.Errors)
}
