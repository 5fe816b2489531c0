package grading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

var testNow = time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)

func ranks(t *testing.T, ids ...string) []belt.Rank {
	t.Helper()
	cat := belt.StandardCatalog()
	out := make([]belt.Rank, len(ids))
	for i, id := range ids {
		r, err := cat.ByID(id)
		require.NoError(t, err)
		out[i] = r
	}
	return out
}

func testProfile(t *testing.T, rank belt.Rank) *profile.Profile {
	t.Helper()
	p, err := profile.NewProfile(profile.NewProfileParams{ID: "p1", Name: "Alex", Rank: rank}, testNow)
	require.NoError(t, err)
	return p
}

func TestApplyTo_PassPromotes(t *testing.T) {
	r := ranks(t, "7th_keup", "6th_keup")
	p := testProfile(t, r[0])

	rec, err := NewRecord(NewRecordParams{ID: "g1", ProfileID: "p1", BeltTested: r[0], BeltAchieved: r[1], Passed: true}, testNow)
	require.NoError(t, err)

	assert.True(t, rec.ApplyTo(p, testNow))
	assert.Equal(t, "6th_keup", p.Rank.ID)
	assert.Equal(t, TypeRegular, rec.Type)
	assert.Equal(t, testNow, rec.Date)
}

func TestApplyTo_FailKeepsRank(t *testing.T) {
	r := ranks(t, "7th_keup", "6th_keup")
	p := testProfile(t, r[0])

	rec, err := NewRecord(NewRecordParams{ID: "g1", ProfileID: "p1", BeltTested: r[0], BeltAchieved: r[1], Passed: false}, testNow)
	require.NoError(t, err)

	assert.False(t, rec.ApplyTo(p, testNow))
	assert.Equal(t, "7th_keup", p.Rank.ID)
}

func TestNewRecord_Validation(t *testing.T) {
	r := ranks(t, "1st_dan")

	_, err := NewRecord(NewRecordParams{ID: "g1", ProfileID: "p1"}, testNow)
	assert.True(t, shared.IsValidation(err))

	_, err = NewRecord(NewRecordParams{ID: "g1", ProfileID: "p1", BeltTested: r[0], Passed: true}, testNow)
	assert.True(t, shared.IsValidation(err))

	fail, err := NewRecord(NewRecordParams{ID: "g1", ProfileID: "p1", BeltTested: r[0]}, testNow)
	require.NoError(t, err)
	assert.Equal(t, r[0], fail.BeltAchieved)
	assert.Equal(t, TypeDan, fail.Type)

	_, err = NewRecord(NewRecordParams{ID: "g1", ProfileID: "p1", BeltTested: r[0], Type: "poomsae"}, testNow)
	assert.True(t, shared.IsValidation(err))
}

func TestSummarize_PassRate(t *testing.T) {
	r := ranks(t, "8th_keup")
	var records []*Record
	outcomes := []bool{true, false, true, true, false, false, true}
	for i, passed := range outcomes {
		rec, err := NewRecord(NewRecordParams{
			ID: "g", ProfileID: "p1", BeltTested: r[0], BeltAchieved: r[0], Passed: passed,
			Date: testNow.AddDate(0, i, 0),
		}, testNow)
		require.NoError(t, err)
		records = append(records, rec)
	}

	st := Summarize(records)

	assert.Equal(t, 7, st.Total)
	assert.Equal(t, 4, st.Passed)
	assert.Equal(t, 3, st.Failed)
	assert.Equal(t, st.Total, st.Passed+st.Failed)
	assert.Equal(t, 4.0/7.0, st.PassRate)
	assert.Equal(t, testNow.AddDate(0, 6, 0), st.LastDate)
}

func TestSummarize_Empty(t *testing.T) {
	st := Summarize(nil)
	assert.Zero(t, st.Total)
	assert.Zero(t, st.PassRate)
}
