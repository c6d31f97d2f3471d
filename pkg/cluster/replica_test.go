package cluster

import (
	"testing"

	"github.com/cuemby/aerospike-go/pkg/node"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, name string) *node.Node {
	t.Helper()
	n := node.New(node.Config{Name: name, Host: "127.0.0.1", Port: 3000, ConnectionsPerNode: 1})
	t.Cleanup(n.Close)
	return n
}

func TestSelectReplicaMaster(t *testing.T) {
	master := newTestNode(t, "BB1")
	prole := newTestNode(t, "BB2")

	n, err := SelectReplica([]*node.Node{master, prole}, policy.ReplicaMaster, 0)
	require.NoError(t, err)
	assert.Same(t, master, n)
}

func TestSelectReplicaMasterDownFailsRatherThanFallingBackToProle(t *testing.T) {
	master := newTestNode(t, "BB1")
	prole := newTestNode(t, "BB2")
	master.Deactivate()

	_, err := SelectReplica([]*node.Node{master, prole}, policy.ReplicaMaster, 0)
	require.Error(t, err)
}

func TestSelectReplicaMasterProlesRoundRobinsOverAttempt(t *testing.T) {
	master := newTestNode(t, "BB1")
	prole := newTestNode(t, "BB2")
	replicas := []*node.Node{master, prole}

	n0, err := SelectReplica(replicas, policy.ReplicaMasterProles, 0)
	require.NoError(t, err)
	assert.Same(t, master, n0)

	n1, err := SelectReplica(replicas, policy.ReplicaMasterProles, 1)
	require.NoError(t, err)
	assert.Same(t, prole, n1)
}

func TestSelectReplicaSequenceAdvancesOnMastersCounter(t *testing.T) {
	master := newTestNode(t, "BB1")
	prole := newTestNode(t, "BB2")
	replicas := []*node.Node{master, prole}

	seen := make(map[*node.Node]bool)
	for i := 0; i < 4; i++ {
		n, err := SelectReplica(replicas, policy.ReplicaSequence, i)
		require.NoError(t, err)
		seen[n] = true
	}
	assert.True(t, seen[master], "sequence policy should eventually pick the master")
	assert.True(t, seen[prole], "sequence policy should eventually pick the prole")
}

func TestSelectReplicaSkipsInactiveNodes(t *testing.T) {
	master := newTestNode(t, "BB1")
	prole := newTestNode(t, "BB2")
	master.Deactivate()

	n, err := SelectReplica([]*node.Node{master, prole}, policy.ReplicaMasterProles, 0)
	require.NoError(t, err)
	assert.Same(t, prole, n)
}

func TestSelectReplicaNoActiveNodes(t *testing.T) {
	master := newTestNode(t, "BB1")
	master.Deactivate()

	_, err := SelectReplica([]*node.Node{master}, policy.ReplicaMasterProles, 0)
	require.Error(t, err)
}
