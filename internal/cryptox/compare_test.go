package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantTimeEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{"equal", []byte("secret-token"), []byte("secret-token"), true},
		{"empty", []byte{}, []byte{}, true},
		{"nil and empty", nil, []byte{}, true},
		{"mismatch first byte", []byte("Xecret"), []byte("secret"), false},
		{"mismatch last byte", []byte("secreX"), []byte("secret"), false},
		{"a shorter", []byte("secre"), []byte("secret"), false},
		{"b shorter", []byte("secret"), []byte("secre"), false},
		{"prefix vs longer", []byte("secret"), []byte("secret-token"), false},
		{"one empty", []byte{}, []byte("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConstantTimeEqual(tt.a, tt.b))
		})
	}
}

func TestConstantTimeEqual_SingleBitDifference(t *testing.T) {
	a := make([]byte, 64)
	b := make([]byte, 64)
	for i := range a {
		a[i] = byte(i)
		b[i] = byte(i)
	}
	assert.True(t, ConstantTimeEqual(a, b))

	for i := range b {
		b[i] ^= 0x01
		assert.False(t, ConstantTimeEqual(a, b), "flipped bit at %d", i)
		b[i] ^= 0x01
	}
}
