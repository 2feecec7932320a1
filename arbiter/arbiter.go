// Package arbiter implements the repair-arbiter capability (C9): the
// decision of whether a proposed repair is applied, kept separate from how
// (or whether) that decision is communicated to an operator.
package arbiter

// Arbiter decides whether a proposed repair should be applied. Ask is called
// once per proposed repair with a human-readable description of the problem
// and the answer that non-interactive policies should assume.
type Arbiter interface {
	Ask(question string, defaultYes bool) (bool, error)
}

// ReadOnly never applies a repair; every question is answered no. Used when
// the driver runs in diagnose-only mode (no -a or -r flag).
type ReadOnly struct{}

func (ReadOnly) Ask(question string, defaultYes bool) (bool, error) {
	return false, nil
}

// Automatic answers every question with defaultYes, the policy spec.md
// assigns to -a: apply the conventional fix for each class of damage without
// prompting.
type Automatic struct{}

func (Automatic) Ask(question string, defaultYes bool) (bool, error) {
	return defaultYes, nil
}

// Scripted answers a fixed sequence of canned answers, one per call,
// recording every question it was asked. It exists for tests that need to
// exercise the arbiter-consuming code paths without a terminal.
type Scripted struct {
	Answers   []bool
	Questions []string
	next      int
}

func (s *Scripted) Ask(question string, defaultYes bool) (bool, error) {
	s.Questions = append(s.Questions, question)
	if s.next >= len(s.Answers) {
		return defaultYes, nil
	}
	answer := s.Answers[s.next]
	s.next++
	return answer, nil
}
