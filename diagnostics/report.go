// Package diagnostics collects the warnings and uncorrected-error messages
// produced over the course of a checking run into a single report the
// driver can print and query for exit-code purposes.
package diagnostics

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

// Report aggregates every diagnostic raised during a run. Warnings and
// uncorrected errors are both folded into the same multierror.Error so the
// driver can print them in the order they were raised; Uncorrected also
// keeps its own count for the exit-code calculation in spec.md's design.
//
// Messages arrive pre-formatted (callers build them with fmt.Sprintf before
// handing them over, since a directory entry's name can itself contain '%'
// and must never be reinterpreted as a format directive).
type Report struct {
	errs        *multierror.Error
	uncorrected int
}

// New returns an empty Report.
func New() *Report {
	return &Report{}
}

// Warn records a warning-tier diagnostic: printed, but never affects the
// exit code.
func (r *Report) Warn(msg string) {
	r.errs = multierror.Append(r.errs, errors.New("warning: "+msg))
}

// Uncorrected records a correctable discrepancy that was not fixed, either
// because the run is read-only or the operator declined the repair.
func (r *Report) Uncorrected(msg string) {
	r.errs = multierror.Append(r.errs, errors.New(msg))
	r.uncorrected++
}

// HasUncorrected reports whether any uncorrected-tier diagnostic was raised.
func (r *Report) HasUncorrected() bool {
	return r.uncorrected > 0
}

// Count returns the total number of diagnostics recorded, warnings included.
func (r *Report) Count() int {
	if r.errs == nil {
		return 0
	}
	return len(r.errs.Errors)
}

// String renders every diagnostic, one per line, in the order raised.
func (r *Report) String() string {
	if r.errs == nil {
		return ""
	}
	r.errs.ErrorFormat = func(errs []error) string {
		s := ""
		for _, e := range errs {
			s += e.Error() + "\n"
		}
		return s
	}
	return r.errs.Error()
}
