package resource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGovernor_Concurrency(t *testing.T) {
	g := NewGovernor(Config{MaxConcurrentCalls: 2})

	release := make(chan struct{})
	started := make(chan struct{}, 2)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Do(context.Background(), func(context.Context) error {
				started <- struct{}{}
				<-release
				return nil
			})
		}()
	}

	<-started
	<-started
	assert.Equal(t, int64(2), g.InFlight())

	// Third call must block until a slot frees up.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := g.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	wg.Wait()
	assert.Zero(t, g.InFlight())
}

func TestGovernor_CallTimeout(t *testing.T) {
	g := NewGovernor(Config{CallTimeout: 10 * time.Millisecond})

	err := g.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGovernor_PropagatesError(t *testing.T) {
	g := NewGovernor(Config{})

	wantErr := errors.New("capability down")
	err := g.Do(context.Background(), func(context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

func TestGovernor_NilAppliesNoLimits(t *testing.T) {
	var g *Governor

	called := false
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Zero(t, g.InFlight())
}
