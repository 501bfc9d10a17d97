package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetIDPathDerived(t *testing.T) {
	id := PathNetID(42)
	require.True(t, id.IsPathDerived())
	require.Equal(t, uint32(42), id.PathID())
	require.Equal(t, uint32(0x8000_002a), id.Uint32())
	require.Equal(t, "path:42", id.String())

	seq := NetID(42)
	require.False(t, seq.IsPathDerived())
	require.Equal(t, "42", seq.String())
}

func TestPeerIDString(t *testing.T) {
	require.Equal(t, "0", BroadcastPeer.String())
	require.Equal(t, "-7", PeerID(-7).String())
}
