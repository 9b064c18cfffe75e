package refsheet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerSpacesCalls(t *testing.T) {
	p := newPacer(20)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.wait(context.Background()))
	}
	// first call is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestPacerDisabled(t *testing.T) {
	p := newPacer(0)
	assert.Nil(t, p)
	assert.NoError(t, p.wait(context.Background()))
}

func TestPacerHonoursContext(t *testing.T) {
	p := newPacer(1)
	require.NoError(t, p.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.wait(ctx), context.Canceled)
}
