package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restituiri/internal/util"
)

func TestSolutionString(t *testing.T) {
	got := SolutionString(util.StringPtr("DPG: 12, Dată: 2004-06-01,  Restituire în natură "))
	require.NotNil(t, got)
	assert.Equal(t, "Restituire în natură", *got)

	got = SolutionString(util.StringPtr("fara virgula"))
	require.NotNil(t, got)
	assert.Equal(t, "fara virgula", *got)

	assert.Nil(t, SolutionString(nil))
}

func TestGroup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Restituire în natură", "Restituire"},
		{"restituire respinsa", "Restituire"},
		{"MRE", "Compensare/Despagubiri"},
		{"propunere masuri reparatorii", "Compensare/Despagubiri"},
		{"Compensare cu alte bunuri", "Compensare/Despagubiri"},
		{"Se respinge", "Respins/Negativ"},
		{"RN", "Respins/Negativ"},
		{"Revocare dispozitie", "Revocare/Anulare"},
		{"anulata", "Revocare/Anulare"},
		{"Declinare competenta", "Declinare/Transfer"},
		{"transmis ANRP", "Declinare/Transfer"},
		{"DJCL", "Declinare/Transfer"},
		{"  In analiza ", "In analiza"},
	}
	for _, tc := range cases {
		got := Group(util.StringPtr(tc.in))
		require.NotNil(t, got, "input %q", tc.in)
		assert.Equal(t, tc.want, *got, "input %q", tc.in)
	}
	assert.Nil(t, Group(nil))
}

func TestGroupWordBoundaries(t *testing.T) {
	// "mrea" and "rnx" are not the MRE/RN abbreviations.
	got := Group(util.StringPtr("mrea rnx"))
	require.NotNil(t, got)
	assert.Equal(t, "mrea rnx", *got)
}

func TestSolutionYear(t *testing.T) {
	got := SolutionYear(util.StringPtr("DPG 3; DPG: 12, Dată: 14/06/2004, Restituire"))
	require.NotNil(t, got)
	assert.Equal(t, 2004, *got)

	*got = 1999
	again := SolutionYear(util.StringPtr("DPG: 12, Dată: 14/06/2004"))
	require.NotNil(t, again)
	assert.Equal(t, 2004, *again)

	assert.Nil(t, SolutionYear(util.StringPtr("Restituire")))
	assert.Nil(t, SolutionYear(nil))
}
