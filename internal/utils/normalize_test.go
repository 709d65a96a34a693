package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRFID(t *testing.T) {
	tests := map[string]string{
		"RFID_1":        "RFID_1",
		" rfid_1 ":      "RFID_1",
		"rfid-00 12":    "RFID-00 12",
		"":              "",
		"  \t ":         "",
		"ng.plt.000123": "NG.PLT.000123",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeRFID(in), "input %q", in)
	}
}

func TestNormalizeRFIDKeepsSeparators(t *testing.T) {
	codes := []string{"NG-12-345", "NG1-2345", "NG.123.45", "NG12345"}
	seen := make(map[string]string, len(codes))
	for _, c := range codes {
		key := NormalizeRFID(c)
		prev, dup := seen[key]
		assert.False(t, dup, "%q and %q collapse to %q", prev, c, key)
		seen[key] = c
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "officer@connexxion.gov", NormalizeEmail("  Officer@Connexxion.GOV "))
}

func TestDigestToken(t *testing.T) {
	a := DigestToken("FACE_X")
	assert.Len(t, a, 64)
	assert.Equal(t, a, DigestToken(" FACE_X "))
	assert.NotEqual(t, a, DigestToken("FACE_Y"))
	assert.NotContains(t, a, "FACE_X")
}

func TestDigestInputsSeparatesParts(t *testing.T) {
	assert.NotEqual(t, DigestInputs("ab", "c"), DigestInputs("a", "bc"))
	assert.Equal(t, DigestInputs("a", "b"), DigestInputs("a", "b"))
}
