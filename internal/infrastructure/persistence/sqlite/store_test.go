package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
)

var t0 = time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	st, err := OpenStore(ctx, MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Belts().Sync(ctx, belt.Standard()))
	return st
}

func rank(t *testing.T, id string) belt.Rank {
	t.Helper()
	r, err := belt.StandardCatalog().ByID(id)
	require.NoError(t, err)
	return r
}

func newProfile(t *testing.T, id, name string) *profile.Profile {
	t.Helper()
	p, err := profile.NewProfile(profile.NewProfileParams{ID: id, Name: name, Rank: rank(t, "9th_keup")}, t0)
	require.NoError(t, err)
	return p
}

func finished(t *testing.T, id, profileID string, end time.Time) *session.Session {
	t.Helper()
	s, err := session.Start(id, profileID, session.TypeFlashcards, []string{"kicks", "stances"}, end.Add(-10*time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.Complete(end, 8, 6))
	return s
}

func TestBelts_ListJuniorFirst(t *testing.T) {
	st := openStore(t)
	ranks, err := st.Belts().List(context.Background())
	require.NoError(t, err)
	require.Len(t, ranks, len(belt.Standard()))
	assert.Equal(t, "10th_keup", ranks[0].ID)

	_, err = st.Belts().GetByID(context.Background(), "black_tag")
	assert.True(t, shared.IsNotFound(err))
}

func TestProfiles_RoundTrip(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	p := newProfile(t, "p1", "Mina")
	p.RecordStudyDay(t0)
	p.AddStudyTime(95 * time.Second)
	require.NoError(t, st.Profiles().Create(ctx, p))

	got, err := st.Profiles().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Mina", got.Name)
	assert.Equal(t, "9th_keup", got.Rank.ID)
	assert.Equal(t, 14, got.Rank.SortOrder)
	assert.Equal(t, 1, got.StreakDays)
	assert.True(t, got.LastStudyDate.Equal(profile.CalendarDay(t0)))
	assert.Equal(t, 95*time.Second, got.TotalStudyTime)
	assert.True(t, got.CreatedAt.Equal(t0))

	byName, err := st.Profiles().GetByNameKey(ctx, profile.NameKey("MINA"))
	require.NoError(t, err)
	assert.Equal(t, "p1", byName.ID)
}

func TestProfiles_DuplicateNameKey(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.Profiles().Create(ctx, newProfile(t, "p1", "Mina")))

	err := st.Profiles().Create(ctx, newProfile(t, "p2", "mINA"))
	assert.True(t, shared.IsDuplicateName(err))

	other := newProfile(t, "p3", "Jae")
	require.NoError(t, st.Profiles().Create(ctx, other))
	other.Name = "Mina"
	assert.True(t, shared.IsDuplicateName(st.Profiles().Update(ctx, other)))
}

func TestProfiles_SetActiveIsExclusive(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.Profiles().Create(ctx, newProfile(t, id, "N"+id)))
	}

	none, err := st.Profiles().GetActive(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, st.Profiles().SetActive(ctx, "a", t0))
	require.NoError(t, st.Profiles().SetActive(ctx, "c", t0.Add(time.Hour)))

	list, err := st.Profiles().List(ctx)
	require.NoError(t, err)
	active := 0
	for _, p := range list {
		if p.IsActive {
			active++
			assert.Equal(t, "c", p.ID)
			assert.True(t, p.LastActiveAt.Equal(t0.Add(time.Hour)))
		}
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})

	assert.True(t, shared.IsNotFound(st.Profiles().SetActive(ctx, "zz", t0)))
}

func TestProgress_GetOrCreateAndUpdate(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.Profiles().Create(ctx, newProfile(t, "p1", "Mina")))

	rec, err := st.Progress().GetOrCreate(ctx, progress.NewRecord("r1", "p1", "ap_chagi", t0))
	require.NoError(t, err)
	rec.Record(true, t0.Add(time.Minute))
	require.NoError(t, st.Progress().Update(ctx, rec))

	again, err := st.Progress().GetOrCreate(ctx, progress.NewRecord("r2", "p1", "ap_chagi", t0))
	require.NoError(t, err)
	assert.Equal(t, "r1", again.ID)
	assert.Equal(t, 1, again.CorrectCount)
	assert.True(t, again.LastPracticedAt.Equal(t0.Add(time.Minute)))

	_, err = st.Progress().GetOrCreate(ctx, progress.NewRecord("r3", "ghost", "ap_chagi", t0))
	assert.True(t, shared.IsNotFound(err))

	err = st.Progress().Insert(ctx, progress.NewRecord("r4", "p1", "ap_chagi", t0))
	assert.True(t, shared.IsAlreadyExists(err))
}

func TestSessions_NewestFirstAndLimit(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.Profiles().Create(ctx, newProfile(t, "p1", "Mina")))

	for i, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, st.Sessions().Append(ctx, finished(t, id, "p1", t0.Add(time.Duration(i)*time.Hour))))
	}

	all, err := st.Sessions().ListByProfile(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "s3", all[0].ID)
	assert.Equal(t, []string{"kicks", "stances"}, all[0].FocusAreas)
	assert.Equal(t, 10*time.Minute, all[0].Duration)
	assert.True(t, all[0].Finalized)

	two, err := st.Sessions().ListByProfile(ctx, "p1", 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	assert.True(t, shared.IsNotFound(st.Sessions().Append(ctx, finished(t, "s9", "ghost", t0))))
}

func TestGradings_ResolveBelts(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.Profiles().Create(ctx, newProfile(t, "p1", "Mina")))

	g, err := grading.NewRecord(grading.NewRecordParams{
		ID: "g1", ProfileID: "p1", Date: t0, Passed: true,
		BeltTested: rank(t, "9th_keup"), BeltAchieved: rank(t, "8th_keup"),
	}, t0)
	require.NoError(t, err)
	require.NoError(t, st.Gradings().Append(ctx, g))

	list, err := st.Gradings().ListByProfile(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Yellow Belt", list[0].BeltAchieved.Color)
	assert.Equal(t, 14, list[0].BeltTested.SortOrder)
}

func TestDelete_CascadesOwnedRows(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.Profiles().Create(ctx, newProfile(t, "a", "A")))
	require.NoError(t, st.Profiles().Create(ctx, newProfile(t, "b", "B")))

	_, err := st.Progress().GetOrCreate(ctx, progress.NewRecord("ra", "a", "charyot", t0))
	require.NoError(t, err)
	_, err = st.Progress().GetOrCreate(ctx, progress.NewRecord("rb", "b", "charyot", t0))
	require.NoError(t, err)
	require.NoError(t, st.Sessions().Append(ctx, finished(t, "sa", "a", t0)))
	require.NoError(t, st.Sessions().Append(ctx, finished(t, "sb", "b", t0)))

	require.NoError(t, st.Profiles().Delete(ctx, "a"))
	assert.True(t, shared.IsNotFound(st.Profiles().Delete(ctx, "a")))

	left, err := st.Progress().ListByProfile(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, left)
	kept, err := st.Progress().ListByProfile(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	n, err := st.Sessions().CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDelete_LeavesOtherProfilesUntouched(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		p := newProfile(t, id, "N"+id)
		p.AddFlashcardsSeen(100)
		p.RecordStudyDay(t0)
		require.NoError(t, st.Profiles().Create(ctx, p))
	}
	require.NoError(t, st.Profiles().SetActive(ctx, "a", t0))

	require.NoError(t, st.Profiles().Delete(ctx, "b"))

	for _, id := range []string{"a", "c"} {
		got, err := st.Profiles().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 100, got.TotalFlashcardsSeen, id)
		assert.Equal(t, 1, got.StreakDays, id)
		assert.Equal(t, "N"+id, got.Name)
		assert.Equal(t, id == "a", got.IsActive, id)
	}
}

func TestWithinTx_RollbackAndCommit(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		require.NoError(t, tx.Profiles().Create(ctx, newProfile(t, "p1", "Mina")))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	n, err := st.Profiles().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = st.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		if err := tx.Profiles().Create(ctx, newProfile(t, "p1", "Mina")); err != nil {
			return err
		}
		return tx.Profiles().SetActive(ctx, "p1", t0)
	})
	require.NoError(t, err)
	active, err := st.Profiles().GetActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "p1", active.ID)
}
