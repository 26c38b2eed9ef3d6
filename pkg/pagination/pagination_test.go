package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{At: time.Date(2026, 3, 4, 10, 30, 0, 123, time.UTC), ID: uuid.New()}
	token := EncodeCursor(in)
	require.NotContains(t, token, "=")

	out, err := ParseCursor(token)
	require.NoError(t, err)
	require.True(t, in.At.Equal(out.At))
	require.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	out, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, out)

	_, err = ParseCursor("!!!")
	require.Error(t, err)

	_, err = ParseCursor(EncodeCursor(Cursor{ID: uuid.New()})[:6])
	require.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+5))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, 8, LimitWithBuffer(7))
}
