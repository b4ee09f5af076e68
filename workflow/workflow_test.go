package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constStep(name string, fields Fields) Step {
	return NewFuncStep(name, func(context.Context, *State) (Fields, error) {
		return fields, nil
	})
}

func failStep(name string, err error) Step {
	return NewFuncStep(name, func(context.Context, *State) (Fields, error) {
		return nil, err
	})
}

func TestRunSequentialOrder(t *testing.T) {
	p := New("test",
		Always(constStep("one", Fields{"v": 1})),
		Always(constStep("two", Fields{"v": 2})),
		Always(constStep("three", nil)),
	)

	s := NewState()
	var seen []string
	err := p.Run(context.Background(), s, func(d Delta) error {
		seen = append(seen, d.Step)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two", "three"}, seen)
	assert.Equal(t, []string{"one", "two", "three"}, s.Steps())

	f, ok := s.Get("two")
	require.True(t, ok)
	assert.Equal(t, 2, f["v"])

	// A nil step result still records an (empty) delta.
	f, ok = s.Get("three")
	require.True(t, ok)
	assert.Empty(t, f)
}

func TestRunSinkSeesDeltaBeforeNextStep(t *testing.T) {
	var sinkCalls int
	second := NewFuncStep("second", func(_ context.Context, s *State) (Fields, error) {
		// By the time this step runs, the first delta must have been
		// delivered.
		assert.Equal(t, 1, sinkCalls)
		assert.True(t, s.Ran("first"))
		return nil, nil
	})

	p := New("test", Always(constStep("first", nil)), Always(second))
	err := p.Run(context.Background(), NewState(), func(Delta) error {
		sinkCalls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sinkCalls)
}

func TestRunConditionalSkipIsSilent(t *testing.T) {
	p := New("test",
		Always(constStep("kept", nil)),
		When(constStep("skipped", nil), func(*State) bool { return false }),
		When(constStep("taken", nil), func(s *State) bool { return s.Ran("kept") }),
	)

	s := NewState()
	var seen []string
	err := p.Run(context.Background(), s, func(d Delta) error {
		seen = append(seen, d.Step)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"kept", "taken"}, seen)
	assert.False(t, s.Ran("skipped"))
}

func TestRunStepFailureStopsExecution(t *testing.T) {
	boom := errors.New("boom")
	p := New("test",
		Always(constStep("first", nil)),
		Always(failStep("second", boom)),
		Always(constStep("third", nil)),
	)

	s := NewState()
	err := p.Run(context.Background(), s, nil)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "second", stepErr.Step)
	assert.ErrorIs(t, err, boom)

	// The failing step records nothing and later steps never run.
	assert.Equal(t, []string{"first"}, s.Steps())
}

func TestRunSinkFailureAborts(t *testing.T) {
	gone := errors.New("client gone")
	p := New("test",
		Always(constStep("first", nil)),
		Always(constStep("second", nil)),
	)

	err := p.Run(context.Background(), NewState(), func(Delta) error {
		return gone
	})

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, "first", abort.Step)
	assert.ErrorIs(t, err, gone)

	var stepErr *StepError
	assert.False(t, errors.As(err, &stepErr), "abort must not look like a step failure")
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New("test", Always(constStep("only", nil)))
	err := p.Run(ctx, NewState(), nil)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunDuplicateStepName(t *testing.T) {
	p := New("test",
		Always(constStep("same", Fields{"v": 1})),
		Always(constStep("same", Fields{"v": 2})),
	)

	s := NewState()
	err := p.Run(context.Background(), s, nil)

	var dup *DuplicateStepError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "same", dup.Step)

	// The first write stands.
	f, _ := s.Get("same")
	assert.Equal(t, 1, f["v"])
}

func TestStateAccessors(t *testing.T) {
	s := NewState()
	require.NoError(t, s.set("step", Fields{"str": "value", "flag": true, "num": 7}))

	assert.Equal(t, "value", s.String("step", "str"))
	assert.True(t, s.Bool("step", "flag"))
	assert.Equal(t, "", s.String("step", "num"), "type mismatch yields zero value")
	assert.Equal(t, "", s.String("missing", "str"))

	v, ok := s.Value("step", "num")
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestIsInternal(t *testing.T) {
	assert.True(t, IsInternal("_fetch_patient"))
	assert.False(t, IsInternal("audit"))
}
