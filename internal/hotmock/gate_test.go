package hotmock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestGate(t *testing.T) {
	require := require.New(t)

	var g RequestGate
	g.Initialize(2, 1)

	require.True(g.Ready(1))
	require.True(g.Ready(2))

	require.True(g.Hold(1))
	require.Equal(AwaitingResponse, g.State(1))
	require.True(g.Ready(2))

	require.True(g.Release(1))
	require.Equal(ReadyToRequest, g.State(1))

	require.False(g.Hold(3))
	require.False(g.Release(0))
	require.False(g.Ready(3))

	g.Hold(2)
	g.Initialize(2, 1)
	require.True(g.Ready(2), "initialize resets every connector to ready")

	g.Clear()
	require.False(g.Ready(1))
}
