package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		components [][]byte
	}{
		{"empty single component", [][]byte{{}}},
		{"two plain components", [][]byte{[]byte("Lovelace"), []byte("R-1")}},
		{"component with embedded NUL", [][]byte{{0x00, 0x01, 0x00}, []byte("x")}},
		{"many components", [][]byte{[]byte("a"), []byte("b"), []byte("c"), {}}},
		{"raw id bytes", [][]byte{{0xDE, 0xAD, 0xBE, 0xEF}, []byte("2024-01-02T03:04:05.000Z")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.components)
			decoded, err := Decode(encoded, len(tt.components))
			require.NoError(t, err)
			require.Equal(t, tt.components, decoded)
		})
	}
}

func TestDecodeWrongCount(t *testing.T) {
	encoded := Encode([][]byte{[]byte("a"), []byte("b")})
	_, err := Decode(encoded, 3)
	require.Error(t, err)
	_, err = Decode(encoded, 1)
	require.Error(t, err)
}

func TestDecodeUnterminatedEscape(t *testing.T) {
	_, err := Decode([]byte{'a', 0x00}, 1)
	require.Error(t, err)
}

func TestDecodeInvalidEscapeByte(t *testing.T) {
	_, err := Decode([]byte{'a', 0x00, 0xFF}, 1)
	require.Error(t, err)
}

func TestIsReservedName(t *testing.T) {
	require.True(t, IsReservedName(".DS_Store"))
	require.True(t, IsReservedName("Thumbs.db"))
	require.False(t, IsReservedName("some-object-dir"))
}
