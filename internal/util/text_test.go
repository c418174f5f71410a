package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "comma below", input: "ȘOSEAUA ȘTEFAN cel Mare", want: "SOSEAUA STEFAN cel Mare"},
		{name: "cedilla", input: "Şos. Ţepeş", want: "Sos. Tepes"},
		{name: "breve and circumflex", input: "Piaţa Română Între", want: "Piata Romana Intre"},
		{name: "ascii untouched", input: "Strada POPESCU 12", want: "Strada POPESCU 12"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Fold(tc.input))
		})
	}
}

func TestIsUpper(t *testing.T) {
	assert.True(t, IsUpper("POPESCU"))
	assert.True(t, IsUpper("G-RAL"))
	assert.True(t, IsUpper("12A"))
	assert.False(t, IsUpper("12"))
	assert.False(t, IsUpper("Strada"))
	assert.False(t, IsUpper(""))
}

func TestCleanTextAndNone(t *testing.T) {
	assert.Nil(t, CleanText("  \n\t "))
	got := CleanText("  Ion \n  Popescu ")
	if assert.NotNil(t, got) {
		assert.Equal(t, "Ion Popescu", *got)
	}
	assert.Equal(t, None, OrNone(nil))
	assert.Nil(t, FromNone("none"))
	assert.Equal(t, "x", *FromNone(" x "))
}
