package acts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restituiri/internal"
	"restituiri/internal/extract"
	"restituiri/internal/util"
)

func record(number, solution, history string) internal.CaseRecord {
	rec := internal.CaseRecord{CaseNumber: util.StringPtr(number), CaseDate: util.StringPtr("2002-02-14")}
	if solution != "" {
		rec.Solution = util.StringPtr(solution)
	}
	if history != "" {
		rec.ActHistory = util.StringPtr(history)
	}
	return rec
}

func TestPlan(t *testing.T) {
	records := []internal.CaseRecord{
		record("12", "DPG: 55, Dată: 2005-03-01, Restituire", "DPG: 55, Dată: 01/03/2005; DPG 60"),
		record("12", "DPG: 55, Dată: 2005-03-01, Restituire", ""),
		record("40", "DPG: 55, Dată: 2005-03-01", "DPG: 70, Data: 2006-07-08"),
		record("41", "NONE", ""),
	}

	tasks := Plan(records, nil)
	require.Len(t, tasks, 2)
	assert.Equal(t, internal.DownloadTask{CaseNumber: "12", Code: "55", ISODate: "2005-03-01", Year: 2005}, tasks[0])
	assert.Equal(t, internal.DownloadTask{CaseNumber: "40", Code: "70", ISODate: "2006-07-08", Year: 2006}, tasks[1])
}

func TestPlanSkipsDone(t *testing.T) {
	records := []internal.CaseRecord{
		record("12", "DPG: 55, Dată: 2005-03-01", "DPG: 70, Data: 2006-07-08"),
	}
	done := func(k internal.DpgKey) bool { return k.Code == "55" }

	tasks := Plan(records, done)
	require.Len(t, tasks, 1)
	assert.Equal(t, "70", tasks[0].Code)
}

func TestPlanUnknownDosar(t *testing.T) {
	tasks := Plan([]internal.CaseRecord{{Solution: util.StringPtr("DPG 9 Data: 2001-01-01")}}, nil)
	require.Len(t, tasks, 1)
	assert.Equal(t, extract.UnknownDosar, tasks[0].CaseNumber)
}
