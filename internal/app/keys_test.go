package app

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeKey(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}

	cases := []struct {
		name  string
		input string
		want  []byte
	}{
		{"hex", "00010203", []byte{0, 1, 2, 3}},
		{"base64", base64.StdEncoding.EncodeToString(raw), raw},
		{"raw base64", base64.RawStdEncoding.EncodeToString([]byte("endor")), []byte("endor")},
		{"plain", "not-hex-or-base64!", []byte("not-hex-or-base64!")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeKey(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeKeyRejectsEmpty(t *testing.T) {
	_, err := DecodeKey("   ")
	require.Error(t, err)
}
