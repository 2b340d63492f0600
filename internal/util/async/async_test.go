package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunParallelRunsEveryTask(t *testing.T) {
	t.Parallel()

	var ran atomic.Int32
	tasks := []Task{
		{Name: "one", Func: func(context.Context) error { ran.Add(1); return nil }},
		{Name: "two", Func: func(context.Context) error { ran.Add(1); return nil }},
		{Name: "three", Func: func(context.Context) error { ran.Add(1); return nil }},
	}
	require.NoError(t, RunParallel(context.Background(), tasks))
	assert.Equal(t, int32(3), ran.Load())
}

func TestRunParallelWaitsForAllTasksOnFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("task exploded")
	var ran atomic.Int32
	tasks := []Task{
		{Name: "failing", Func: func(context.Context) error { return cause }},
		{Name: "surviving", Func: func(context.Context) error { ran.Add(1); return nil }},
	}

	err := RunParallel(context.Background(), tasks)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failing")
	assert.Equal(t, int32(1), ran.Load(), "sibling tasks must finish even when one fails")
}

func TestRunParallelEmpty(t *testing.T) {
	t.Parallel()
	assert.NoError(t, RunParallel(context.Background(), nil))
}
