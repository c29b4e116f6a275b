package automaton_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflare-ai/go-xsd/internal/automaton"
)

func TestSimpleSequence(t *testing.T) {
	t.Parallel()

	a := automaton.New()
	s1 := a.NewState()
	s2 := a.NewState()
	a.TransitionOn(0, automaton.Token{Local: "A"}, "decl-A", s1)
	a.TransitionOn(s1, automaton.Token{Local: "B"}, "decl-B", s2)
	a.MarkFinal(s2)
	require.NoError(t, a.Determinize())

	e := a.NewExec()
	assert.True(t, e.PushToken(automaton.Token{Local: "A"}).OK, "expected A to be accepted")
	assert.True(t, e.PushToken(automaton.Token{Local: "B"}).OK, "expected B to be accepted")
	ok, _ := e.EndOfSequence()
	assert.True(t, ok, "expected end of sequence to be satisfied")
}

func TestRejectsUnexpectedTokenWithExpectedList(t *testing.T) {
	t.Parallel()

	a := automaton.New()
	s1 := a.NewState()
	a.TransitionOn(0, automaton.Token{Local: "B"}, nil, s1)
	a.MarkFinal(s1)

	e := a.NewExec()
	r := e.PushToken(automaton.Token{Local: "X"})
	assert.False(t, r.OK, "expected rejection")

	found := false
	for _, tok := range r.ExpectedNext {
		if tok.Local == "B" {
			found = true
		}
		assert.NotEqual(t, "X", tok.Local, "expected-next list must not contain the rejected token")
	}
	assert.True(t, found, "expected-next should contain B, got %v", r.ExpectedNext)
}

func TestCountedTransitionBoundedRange(t *testing.T) {
	t.Parallel()

	// particle B{1,2}
	a := automaton.New()
	exit := a.NewState()
	a.CountedTransition(0, automaton.Token{Local: "B"}, nil, exit, 1, 2)
	a.MarkFinal(exit)

	run := func(n int) bool {
		e := a.NewExec()
		for i := 0; i < n; i++ {
			if r := e.PushToken(automaton.Token{Local: "B"}); !r.OK {
				return false
			}
		}
		fin, _ := e.EndOfSequence()
		return fin
	}

	assert.False(t, run(0), "0 occurrences should not satisfy minOccurs=1")
	assert.True(t, run(1), "1 occurrence should satisfy {1,2}")
	assert.True(t, run(2), "2 occurrences should satisfy {1,2}")

	// A third push must be rejected: after reaching exit at count 2,
	// there is no further transition.
	e := a.NewExec()
	e.PushToken(automaton.Token{Local: "B"})
	e.PushToken(automaton.Token{Local: "B"})
	r := e.PushToken(automaton.Token{Local: "B"})
	assert.False(t, r.OK, "3rd occurrence of B{1,2} must be rejected")
}

func TestCountedTransitionUnbounded(t *testing.T) {
	t.Parallel()

	a := automaton.New()
	exit := a.NewState()
	a.CountedTransition(0, automaton.Token{Local: "B"}, nil, exit, 1, -1)
	a.MarkFinal(exit)

	e := a.NewExec()
	for i := 0; i < 5; i++ {
		r := e.PushToken(automaton.Token{Local: "B"})
		require.True(t, r.OK, "occurrence %d of unbounded B should be accepted", i)
	}
	ok, _ := e.EndOfSequence()
	assert.True(t, ok, "unbounded repeat should be able to stop any time after min")
}

func TestWildcardAmbiguityDetected(t *testing.T) {
	t.Parallel()

	a := automaton.New()
	s1 := a.NewState()
	s2 := a.NewState()
	a.WildcardTransition(0, "", nil, s1)
	a.TransitionOn(0, automaton.Token{Local: "A"}, nil, s2)
	assert.Error(t, a.Determinize(), "expected determinism failure: ##any wildcard overlaps any exact token")
}

func TestAllGroupRequiresEveryMember(t *testing.T) {
	t.Parallel()

	a := automaton.New()
	entry := automaton.State(0)
	exit := a.NewState()
	a.AddAllGroup(entry, exit, []struct {
		Tok     automaton.Token
		Payload automaton.Payload
		Min     int
		Max     int
	}{
		{Tok: automaton.Token{Local: "A"}, Min: 1, Max: 1},
		{Tok: automaton.Token{Local: "B"}, Min: 1, Max: 1},
	})
	a.Epsilon(entry, exit)
	a.MarkFinal(exit)

	e := a.NewExec()
	e.PushToken(automaton.Token{Local: "B"})
	ok, _ := e.EndOfSequence()
	assert.False(t, ok, "all-group should not be satisfied until every required member appears")

	e.PushToken(automaton.Token{Local: "A"})
	ok, _ = e.EndOfSequence()
	assert.True(t, ok, "all-group should be satisfied once both members appear, any order")
}
