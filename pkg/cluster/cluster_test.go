package cluster

import (
	"context"
	"encoding/base64"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/cuemby/aerospike-go/internal/testutil"
	"github.com/cuemby/aerospike-go/pkg/hostparse"
	"github.com/cuemby/aerospike-go/pkg/node"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionForDigest(t *testing.T) {
	var d types.Digest
	d[0], d[1], d[2], d[3] = 1, 0, 0, 0
	assert.Equal(t, 1, PartitionForDigest(d))
}

func TestParsePeers(t *testing.T) {
	peers := parsePeers("BB1,tls-a,10.0.0.1:3000;BB2,,10.0.0.2:3000")
	require.Len(t, peers, 2)
	assert.Equal(t, hostparse.Host{Name: "10.0.0.1", TLSName: "tls-a", Port: 3000}, peers["BB1"])
	assert.Equal(t, hostparse.Host{Name: "10.0.0.2", TLSName: "", Port: 3000}, peers["BB2"])
}

func TestApplyBitmapsMasterAndAll(t *testing.T) {
	n := node.New(node.Config{Name: "BB1", Host: "127.0.0.1", Port: 3000, ConnectionsPerNode: 1})
	defer n.Close()

	bitmap := make([]byte, NumPartitions/8)
	bitmap[0] = 0x01 // partition 0 bit set

	b64 := base64.StdEncoding.EncodeToString(bitmap)
	fresh := make(map[string]*PartitionTable)
	applyBitmaps(fresh, n, "test:"+b64, true)
	applyBitmaps(fresh, n, "test:"+b64, false)

	table := fresh["test"]
	require.NotNil(t, table)
	require.Len(t, table.Replicas(0), 1)
	assert.Same(t, n, table.Replicas(0)[0])
}

func TestSeedDiscoverySuccess(t *testing.T) {
	fn := testutil.StartFakeNode(t, "BB9020011AC4202", nil)
	_, portStr, err := net.SplitHostPort(fn.Addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	pol := policy.DefaultClientPolicy()
	pol.ConnectionTimeout = 2 * time.Second
	pol.TendInterval = 50 * time.Millisecond

	c, err := New(context.Background(), []hostparse.Host{{Name: "127.0.0.1", Port: port}}, pol, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	nodes := c.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "BB9020011AC4202", nodes[0].Name())
}

func TestSeedDiscoveryFailsWithNoReachableSeed(t *testing.T) {
	pol := policy.DefaultClientPolicy()
	pol.ConnectionTimeout = 200 * time.Millisecond

	_, err := New(context.Background(), []hostparse.Host{{Name: "127.0.0.1", Port: 1}}, pol, zerolog.Nop())
	assert.Error(t, err)
}
