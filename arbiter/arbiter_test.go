package arbiter_test

import (
	"testing"

	"github.com/dargueta/mfsck/arbiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOnly_AlwaysDeclines(t *testing.T) {
	var a arbiter.ReadOnly
	ok, err := a.Ask("repair something", true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAutomatic_FollowsDefault(t *testing.T) {
	var a arbiter.Automatic
	ok, err := a.Ask("repair something", true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Ask("repair something else", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScripted_ConsumesAnswersInOrderAndRecordsQuestions(t *testing.T) {
	sc := &arbiter.Scripted{Answers: []bool{true, false}}

	first, err := sc.Ask("question one", false)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := sc.Ask("question two", true)
	require.NoError(t, err)
	assert.False(t, second)

	require.Equal(t, []string{"question one", "question two"}, sc.Questions)
}

func TestScripted_FallsBackToDefaultOnceAnswersExhausted(t *testing.T) {
	sc := &arbiter.Scripted{Answers: []bool{true}}

	_, err := sc.Ask("only answer", false)
	require.NoError(t, err)

	third, err := sc.Ask("unanswered question", true)
	require.NoError(t, err)
	assert.True(t, third)
}
