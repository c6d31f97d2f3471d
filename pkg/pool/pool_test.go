package pool

import (
	"context"
	"net"
	"testing"

	"github.com/cuemby/aerospike-go/pkg/conn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeDialer(t *testing.T) Dialer {
	return func(ctx context.Context) (*conn.Connection, error) {
		client, server := net.Pipe()
		t.Cleanup(func() { server.Close() })
		return conn.Wrap(client, "test-node", 0), nil
	}
}

func TestAcquireDialsUnderCap(t *testing.T) {
	p := New(pipeDialer(t), 2)

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c1)

	stats := p.Stats()
	assert.Equal(t, int32(1), stats.InUse)
}

func TestAcquireFailsImmediatelyWhenExhausted(t *testing.T) {
	p := New(pipeDialer(t), 1)

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)

	_, err = p.Acquire(context.Background())
	assert.Error(t, err)

	p.Release(c1)
	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c2)
}

func TestReleaseReusesIdleConnection(t *testing.T) {
	p := New(pipeDialer(t), 1)

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(c1)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Idle)

	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestDiscardFreesSlotWithoutQueueing(t *testing.T) {
	p := New(pipeDialer(t), 1)

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Discard(c1)

	stats := p.Stats()
	assert.Equal(t, 0, stats.Idle)
	assert.Equal(t, int32(0), stats.InUse)
}

func TestCloseDrainsIdleQueue(t *testing.T) {
	p := New(pipeDialer(t), 2)

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(c1)

	p.Close()
	assert.Equal(t, 0, p.Stats().Idle)
}
