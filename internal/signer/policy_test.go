package signer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_CanonicalForm(t *testing.T) {
	p := NewPolicy("https://d111111abcdef8.cloudfront.net/uploads/ab12cd34_report.pdf", time.Unix(1700003600, 0))

	b, err := p.Marshal()
	require.NoError(t, err)

	want := `{"Statement":[{"Resource":"https://d111111abcdef8.cloudfront.net/uploads/ab12cd34_report.pdf","Condition":{"DateLessThan":{"AWS:EpochTime":1700003600}}}]}`
	assert.Equal(t, want, string(b))
}

func TestEncodeSpecial_Substitutions(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		// 0xfb 0xef 0xbe encodes to "++++" under plain base64
		{"plus becomes dash", []byte{0xfb, 0xef, 0xbe}, "----"},
		// 0xff 0xff 0xff encodes to "////"
		{"slash becomes tilde", []byte{0xff, 0xff, 0xff}, "~~~~"},
		// single byte forces '=' padding
		{"padding becomes underscore", []byte("a"), "YQ__"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeSpecial(tt.in))
		})
	}
}

func TestDecodeSpecial_RoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("hello"),
		{0xfb, 0xef, 0xbe, 0x00, 0x01},
		{0xff},
		[]byte(`{"Statement":[]}`),
	}

	for _, in := range inputs {
		out, err := DecodeSpecial(EncodeSpecial(in))
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestDecodeSpecial_RejectsGarbage(t *testing.T) {
	_, err := DecodeSpecial("%%%")
	assert.Error(t, err)
}
