package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTile(t *testing.T) {
	tests := []struct {
		in      string
		want    Move
		wantErr bool
	}{
		{in: "0,0", want: Move{0, 0}},
		{in: "1,2", want: Move{1, 2}},
		{in: " 2 , 1 ", want: Move{2, 1}},
		// диапазон не проверяется на этапе разбора
		{in: "7,9", want: Move{7, 9}},
		{in: "", wantErr: true},
		{in: "-1,0", wantErr: true},
		{in: "+0,0", wantErr: true},
		{in: "-0,0", wantErr: true},
		{in: "00,0", wantErr: true},
		{in: "0,01", wantErr: true},
		{in: "10,0", wantErr: true},
		{in: "1 2,0", wantErr: true},
		{in: "12", wantErr: true},
		{in: "a,b", wantErr: true},
		{in: "1,", wantErr: true},
		{in: "1,2,3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTile(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedTile)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMove_TileRoundTrip(t *testing.T) {
	for i := 0; i < BoardSize*BoardSize; i++ {
		mv := cellMove(i)
		got, err := ParseTile(mv.Tile())
		require.NoError(t, err)
		assert.Equal(t, mv, got)
	}
}

func TestBoard_Full(t *testing.T) {
	var b Board
	assert.False(t, b.Full())

	for i := 0; i < BoardSize*BoardSize; i++ {
		b[i/BoardSize][i%BoardSize] = MarkO
	}
	assert.True(t, b.Full())
}

func TestMark_Opponent(t *testing.T) {
	assert.Equal(t, MarkO, MarkX.Opponent())
	assert.Equal(t, MarkX, MarkO.Opponent())
	assert.Equal(t, Empty, Empty.Opponent())
}
