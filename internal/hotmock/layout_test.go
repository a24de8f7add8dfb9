package hotmock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		name  string
		board BoardType
		want  map[ConnectorType]Range
		ao    Range
	}{
		{
			name:  "legacy",
			board: BoardLegacy,
			want: map[ConnectorType]Range{
				DI: {1, 15}, DO: {1, 5}, AI: {1, 1}, PI: {1, 2}, GS: {1, 1}, TS: {1, 1},
			},
			ao: Range{0, 0},
		},
		{
			name:  "digital",
			board: BoardDigital,
			want: map[ConnectorType]Range{
				DI: {1, 15}, DO: {1, 5}, AI: {1, 1}, PI: {1, 2}, GS: {1, 1}, TS: {1, 1},
			},
			ao: Range{0, 0},
		},
		{
			name:  "analog",
			board: BoardAnalog,
			want: map[ConnectorType]Range{
				DI: {16, 10}, DO: {6, 5}, AI: {1, 5}, PI: {0, 0}, GS: {1, 1}, TS: {1, 1},
			},
			ao: Range{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			l, err := LayoutFor(tt.board)
			require.NoError(err)
			require.Equal(tt.board, l.Board)
			for typ, r := range tt.want {
				require.Equal(r, l.Range(typ), typ.String())
			}
			require.Equal(tt.ao, l.AO)
		})
	}
}

func TestLayoutForUnknownBoard(t *testing.T) {
	require := require.New(t)

	l, err := LayoutFor(BoardType(42))
	require.ErrorIs(err, ErrInvalidBoardType)
	for _, typ := range ConnectorTypes {
		require.Zero(l.Range(typ).Count)
	}
	require.Zero(l.AO.Count)
}

func TestRangeContains(t *testing.T) {
	require := require.New(t)

	r := Range{First: 6, Count: 5}
	require.False(r.Contains(5))
	require.True(r.Contains(6))
	require.True(r.Contains(10))
	require.False(r.Contains(11))
	require.Equal(10, r.Last())
	require.Equal([]int{6, 7, 8, 9, 10}, r.IDs())

	require.False(Range{First: 1}.Contains(1))
}

func TestParseBoardType(t *testing.T) {
	require := require.New(t)

	b, err := ParseBoardType(" Analog ")
	require.NoError(err)
	require.Equal(BoardAnalog, b)

	b, err = ParseBoardType("digital")
	require.NoError(err)
	require.Equal(BoardDigital, b)

	_, err = ParseBoardType("hybrid")
	require.ErrorIs(err, ErrInvalidBoardType)
}

func TestParseConnectorType(t *testing.T) {
	require := require.New(t)

	for _, typ := range ConnectorTypes {
		got, err := ParseConnectorType(typ.String())
		require.NoError(err)
		require.Equal(typ, got)
	}

	got, err := ParseConnectorType("gs")
	require.NoError(err)
	require.Equal(GS, got)

	_, err = ParseConnectorType("AO")
	require.ErrorIs(err, ErrInvalidConnectorType)
}

func TestAddressString(t *testing.T) {
	require.Equal(t, "AI03", Address{Type: AI, ID: 3}.String())
	require.Equal(t, "DI16", Address{Type: DI, ID: 16}.String())
}
