package ports

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
)

func addr(t hotmock.ConnectorType, id int) hotmock.Address {
	return hotmock.Address{Type: t, ID: id}
}

func TestNewActiveSetSortsAndDedups(t *testing.T) {
	require := require.New(t)

	s := NewActiveSet(addr(hotmock.PI, 2), addr(hotmock.DI, 3), addr(hotmock.DI, 1), addr(hotmock.DI, 3))
	require.Equal(ActiveSet{addr(hotmock.DI, 1), addr(hotmock.DI, 3), addr(hotmock.PI, 2)}, s)
	require.True(s.Contains(addr(hotmock.DI, 3)))
	require.False(s.Contains(addr(hotmock.DI, 2)))
	require.Equal([]int{1, 3}, s.IDs(hotmock.DI))
	require.Nil(s.IDs(hotmock.AI))
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		previous ActiveSet
		current  ActiveSet
		want     Changes
	}{
		{
			name:    "from nothing",
			current: NewActiveSet(addr(hotmock.DO, 1), addr(hotmock.DI, 2)),
			want:    Changes{Added: []hotmock.Address{addr(hotmock.DI, 2), addr(hotmock.DO, 1)}},
		},
		{
			name:     "to nothing",
			previous: NewActiveSet(addr(hotmock.AI, 1)),
			want:     Changes{Removed: []hotmock.Address{addr(hotmock.AI, 1)}},
		},
		{
			name:     "mixed",
			previous: NewActiveSet(addr(hotmock.DI, 1), addr(hotmock.DI, 2), addr(hotmock.PI, 1)),
			current:  NewActiveSet(addr(hotmock.DI, 2), addr(hotmock.DI, 3), addr(hotmock.PI, 1), addr(hotmock.PI, 2)),
			want: Changes{
				Added:   []hotmock.Address{addr(hotmock.DI, 3), addr(hotmock.PI, 2)},
				Kept:    []hotmock.Address{addr(hotmock.DI, 2), addr(hotmock.PI, 1)},
				Removed: []hotmock.Address{addr(hotmock.DI, 1)},
			},
		},
		{
			name:     "unchanged",
			previous: NewActiveSet(addr(hotmock.TS, 1)),
			current:  NewActiveSet(addr(hotmock.TS, 1)),
			want:     Changes{Kept: []hotmock.Address{addr(hotmock.TS, 1)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.previous, tt.current)
			require.Equal(t, tt.want, got)
		})
	}

	require.True(t, Diff(nil, nil).Empty())
}

func TestPortNames(t *testing.T) {
	require := require.New(t)

	require.Equal("DO1", PortName(hotmock.BoardDigital, addr(hotmock.DO, 1)))
	require.Equal("AI1", PortName(hotmock.BoardLegacy, addr(hotmock.AI, 1)))

	require.Equal("DO7", PortName(hotmock.BoardAnalog, addr(hotmock.DO, 6)))
	require.Equal("AI1", PortName(hotmock.BoardAnalog, addr(hotmock.AI, 2)))
	require.Equal("DI16", PortName(hotmock.BoardAnalog, addr(hotmock.DI, 16)))

	require.Equal("Reset_PI2", ResetPortName(hotmock.BoardDigital, addr(hotmock.PI, 2)))
}
