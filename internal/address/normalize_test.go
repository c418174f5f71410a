package address

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "abbreviated street with number and sector", input: "STR. G-RAL VASILE MILEA NR 12 SECTOR 3", want: "Strada VASILE MILEA 12 sector 3 bucuresti"},
		{name: "no street type", input: "TEREN AGRICOL FN", want: "TEREN AGRICOL FN bucuresti"},
		{name: "fn marker with parcel", input: "STR. LALELELOR NR. FN PARCELA 24B, SECTOR 1", want: "Strada LALELELOR 24 sector 1 bucuresti"},
		{name: "fn with number in parentheses", input: "CALEA VICTORIEI FN(15)", want: "Calea VICTORIEI 15 bucuresti"},
		{name: "diacritics", input: "ȘOS. PANDURI NR 22", want: "Soseaua PANDURI 22 bucuresti"},
		{name: "sector zero is not appended", input: "Bd. Unirii nr. 5, sector 0", want: "Bulevardul 5 bucuresti"},
		{name: "floor and apartment noise", input: "STR. ION CAMPINEANU NR 4 ETAJ 2 AP 7 SECTOR 1", want: "Strada ION CAMPINEANU 4 sector 1 bucuresti"},
		{name: "keyword glued to name", input: "STR.POPESCU NR 3", want: "Strada POPESCU 3 bucuresti"},
		{name: "sector before number", input: "STR. POPESCU SECTOR 2 NR 7", want: "Strada POPESCU 7 sector 2 bucuresti"},
		{name: "sector before lettered number", input: "BD. UNIRII SECTOR 4 NR 15A", want: "Bulevardul UNIRII 15 sector 4 bucuresti"},
		{name: "sector zero before number", input: "STR. POPESCU SECTOR 0 NR 7", want: "Strada POPESCU 7 bucuresti"},
		{name: "street named sector", input: "STR. SECTOR NR 4", want: "Strada SECTOR 4 bucuresti"},
		{name: "empty", input: "", want: "bucuresti"},
		{name: "already has city", input: "TEREN BUCURESTI", want: "TEREN BUCURESTI"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.input))
		})
	}
}

func TestNormalizeDetailed(t *testing.T) {
	res := NormalizeDetailed("STR. LALELELOR NR. FN PARCELA 24B, SECTOR 1")
	assert.True(t, res.NoNumber)
	assert.Equal(t, "24", res.Parcel)
	assert.Equal(t, "24", res.Number)
	assert.Equal(t, "1", res.Sector)
	assert.True(t, res.HasStreetType)

	res = NormalizeDetailed("CALEA VICTORIEI FN(15)")
	assert.True(t, res.FNNumber)
	assert.Empty(t, res.Number)

	res = NormalizeDetailed("TEREN AGRICOL FN")
	assert.False(t, res.HasStreetType)

	res = NormalizeDetailed("STR. POPESCU SECTOR 2 NR 7")
	assert.Equal(t, "7", res.Number)
	assert.Equal(t, "2", res.Sector)
	assert.Contains(t, res.Address, " 7 ")

	res = NormalizeDetailed("STR. SECTOR NR 4")
	assert.Equal(t, "4", res.Number)
	assert.Empty(t, res.Sector)
}

func TestNormalizeKeepsNumberNextToSector(t *testing.T) {
	for _, in := range []string{"STR. POPESCU SECTOR 2 NR 7", "BD. UNIRII SECTOR 4 NR 15A", "STR. SECTOR NR 4"} {
		res := NormalizeDetailed(in)
		once := res.Address
		assert.Contains(t, strings.Fields(once), res.Number, "input %q", in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeSingleStreetTypeAndNumber(t *testing.T) {
	got := Normalize("STR. G-RAL VASILE MILEA NR 12 SECTOR 3")
	assert.Equal(t, 1, strings.Count(got, "Strada"))
	tokens := strings.Fields(got)
	require.GreaterOrEqual(t, len(tokens), 4)
	assert.Equal(t, "12", tokens[3])
	assert.True(t, strings.HasSuffix(got, "sector 3 bucuresti"))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"STR. G-RAL VASILE MILEA NR 12 SECTOR 3",
		"TEREN AGRICOL FN",
		"STR. LALELELOR NR. FN PARCELA 24B, SECTOR 1",
		"CALEA VICTORIEI FN(15)",
		"ȘOS. PANDURI NR 22 sector: 5",
		"Bd. Unirii nr. 5, sector 0",
		"INTR. MORII NR 9 BIS SECTOR 6",
		"STR. POPESCU SECTOR 2 NR 7",
		"BD. UNIRII SECTOR 4 NR 15A",
		"STR. POPESCU SECTOR 0 NR 7",
		"STR. SECTOR NR 4",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "input %q", in)
		assert.LessOrEqual(t, strings.Count(strings.ToLower(twice), "sector"), 1, "input %q", in)
		assert.Equal(t, 1, strings.Count(strings.ToLower(twice), City), "input %q", in)
	}
}

func TestNormalizeAlwaysEndsWithCity(t *testing.T) {
	inputs := []string{"", "   ", "(x)", "nr 5", "sector 2", "PIATA ROMANA", "ALEEA BADEA CARTAN NR 1,", "Strada"}
	for _, in := range inputs {
		got := Normalize(in)
		assert.True(t, strings.HasSuffix(strings.ToLower(got), City), "input %q -> %q", in, got)
	}
}

func TestNormalizeSectorZero(t *testing.T) {
	for _, in := range []string{"STR. X NR 1 sector 0", "STR. X NR 1 sector: 0", "ALEEA Y sector 0"} {
		got := Normalize(in)
		assert.NotContains(t, got, "sector 0", "input %q", in)
	}

	// zero-sector clauses are dropped whole, not kept as upper-case tokens
	assert.Equal(t, "Strada X bucuresti", Normalize("STR X SECTOR 0"))
	assert.Empty(t, NormalizeDetailed("STR X SECTOR 0").Sector)
}
