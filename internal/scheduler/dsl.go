package scheduler

// This file implements the trial-block DSL: a macro-like builder
// expanding three trial-script syntaxes --
// unconditional block, if/elseif/else, and while -- into nested
// ExpandingMoments, so a condition is re-evaluated at dispatch time rather
// than frozen when the trial script is built. Host-language if/for
// statements can't do this: by the time Go's own control flow runs (at
// scheduler-construction time), no moment has executed yet and there's
// nothing for a condition to read.

// Block returns an ExpandingMoment that unrolls moments exactly once, the
// DSL's unconditional form.
func Block(moments ...Moment) Moment {
	var ran bool

	return Expanding(func() bool {
		if ran {
			return false
		}

		ran = true

		return true
	}, func() []Moment { return moments }, false)
}

// Branch pairs a condition with the Moments to run when it holds, one arm
// of an If/ElseIf chain.
type Branch struct {
	Cond    func() bool
	Moments []Moment
}

// If returns an ExpandingMoment implementing if/elseif.../else: branches
// are tested in order at dispatch time and the first true one's Moments
// are unrolled; elseMoments (possibly nil) run if none match.
func If(branches []Branch, elseMoments []Moment) Moment {
	var decided bool

	return Expanding(func() bool {
		if decided {
			return false
		}

		decided = true

		return true
	}, func() []Moment {
		for _, b := range branches {
			if b.Cond() {
				return b.Moments
			}
		}

		return elseMoments
	}, false)
}

// While returns an ExpandingMoment that re-evaluates cond after body()'s
// Moments finish, the DSL's looping form -- implemented by the Loop flag
// on Expanding rather than bespoke looping logic in Scheduler.
func While(cond func() bool, body func() []Moment) Moment {
	return Expanding(cond, body, true)
}
