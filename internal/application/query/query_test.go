package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/content"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/infrastructure/persistence/memory"
)

var now = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

type staticSource struct{ cat *content.Catalog }

func (s staticSource) Snapshot(context.Context) (*content.Catalog, error) { return s.cat, nil }

type mockCache struct{ mock.Mock }

func (m *mockCache) GetEligible(ctx context.Context, key content.CacheKey) ([]shared.ContentID, bool, error) {
	args := m.Called(ctx, key)
	ids, _ := args.Get(0).([]shared.ContentID)
	return ids, args.Bool(1), args.Error(2)
}

func (m *mockCache) SetEligible(ctx context.Context, key content.CacheKey, ids []shared.ContentID) error {
	return m.Called(ctx, key, ids).Error(0)
}

func rankOf(t *testing.T, id string) belt.Rank {
	t.Helper()
	r, err := belt.StandardCatalog().ByID(id)
	require.NoError(t, err)
	return r
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	require.NoError(t, st.Belts().Sync(context.Background(), belt.Standard()))
	return st
}

func addProfile(t *testing.T, st *memory.Store, id, name, beltID string) *profile.Profile {
	t.Helper()
	p, err := profile.NewProfile(profile.NewProfileParams{ID: id, Name: name, Rank: rankOf(t, beltID)}, now)
	require.NoError(t, err)
	require.NoError(t, st.Profiles().Create(context.Background(), p))
	return p
}

func catalog(t *testing.T) *content.Catalog {
	t.Helper()
	cat, err := content.NewCatalog([]content.Item{
		{ID: "charyot", Kind: content.KindTerminology, Category: "commands", Term: "Attention", RequiredRank: rankOf(t, "10th_keup")},
		{ID: "chon_ji", Kind: content.KindPattern, Category: "patterns", Term: "Chon-Ji", RequiredRank: rankOf(t, "9th_keup")},
		{ID: "dan_gun", Kind: content.KindPattern, Category: "patterns", Term: "Dan-Gun", RequiredRank: rankOf(t, "8th_keup")},
		{ID: "ap_chagi", Kind: content.KindTerminology, Category: "kicks", Term: "Front kick", RequiredRank: rankOf(t, "10th_keup")},
	})
	require.NoError(t, err)
	return cat
}

func ids(items []ContentItemDTO) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────

func TestGetActiveProfile(t *testing.T) {
	st := seedStore(t)
	q := NewProfileQueries(st)
	ctx := context.Background()

	got, err := q.GetActiveProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	addProfile(t, st, "p1", "Mina", "10th_keup")
	require.NoError(t, st.Profiles().SetActive(ctx, "p1", now))

	got, err = q.GetActiveProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "10th_keup", got.Belt.ID)
}

func TestListBelts_JuniorFirst(t *testing.T) {
	belts, err := NewProfileQueries(seedStore(t)).ListBelts(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, belts)
	assert.Equal(t, "10th_keup", belts[0].ID)
	assert.Equal(t, "5th_dan", belts[len(belts)-1].ID)
}

func TestEligibleContent_CumulativeByBelt(t *testing.T) {
	st := seedStore(t)
	addProfile(t, st, "junior", "Junior", "10th_keup")
	addProfile(t, st, "senior", "Senior", "8th_keup")
	h := NewEligibleContentHandler(st, staticSource{catalog(t)}, nil)
	ctx := context.Background()

	res, err := h.Handle(ctx, EligibleContentQuery{ProfileID: "junior"})
	require.NoError(t, err)
	assert.Equal(t, []string{"charyot", "ap_chagi"}, ids(res.Items))

	assert.Equal(t, []string{"commands", "kicks", "patterns"}, res.Categories)

	res, err = h.Handle(ctx, EligibleContentQuery{ProfileID: "junior", Kind: "pattern"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
	assert.Equal(t, []string{"patterns"}, res.Categories, "categories list the catalog, not the eligible subset")

	res, err = h.Handle(ctx, EligibleContentQuery{ProfileID: "senior", Kind: "pattern"})
	require.NoError(t, err)
	assert.Equal(t, []string{"chon_ji", "dan_gun"}, ids(res.Items))

	_, err = h.Handle(ctx, EligibleContentQuery{ProfileID: "ghost"})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, EligibleContentQuery{ProfileID: "junior", Kind: "poomsae"})
	assert.True(t, shared.IsValidation(err))
}

func TestEligibleContent_UsesCache(t *testing.T) {
	st := seedStore(t)
	addProfile(t, st, "p1", "Mina", "8th_keup")
	cat := catalog(t)
	cache := new(mockCache)
	key := content.CacheKey{Version: cat.Version(), SortOrder: 13, Filter: content.Filter{Kind: content.KindPattern}}

	cache.On("GetEligible", mock.Anything, key).Return(nil, false, nil).Once()
	cache.On("SetEligible", mock.Anything, key, []shared.ContentID{"chon_ji", "dan_gun"}).Return(nil).Once()
	cache.On("GetEligible", mock.Anything, key).Return([]shared.ContentID{"chon_ji", "dan_gun"}, true, nil).Once()

	h := NewEligibleContentHandler(st, staticSource{cat}, cache)
	first, err := h.Handle(context.Background(), EligibleContentQuery{ProfileID: "p1", Kind: "pattern"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := h.Handle(context.Background(), EligibleContentQuery{ProfileID: "p1", Kind: "pattern"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, ids(first.Items), ids(second.Items))
	cache.AssertExpectations(t)
}

type mapCache struct {
	m map[content.CacheKey][]shared.ContentID
}

func (c *mapCache) GetEligible(_ context.Context, key content.CacheKey) ([]shared.ContentID, bool, error) {
	ids, ok := c.m[key]
	return ids, ok, nil
}

func (c *mapCache) SetEligible(_ context.Context, key content.CacheKey, ids []shared.ContentID) error {
	c.m[key] = ids
	return nil
}

type swapSource struct{ cat *content.Catalog }

func (s *swapSource) Snapshot(context.Context) (*content.Catalog, error) { return s.cat, nil }

func TestEligibleContent_RecategorizedItemMissesOldCacheEntry(t *testing.T) {
	st := seedStore(t)
	addProfile(t, st, "p1", "Mina", "10th_keup")
	white := rankOf(t, "10th_keup")

	before, err := content.NewCatalog([]content.Item{
		{ID: "niunja_sogi", Kind: content.KindTerminology, Category: "stances", Term: "L stance", RequiredRank: white},
	})
	require.NoError(t, err)
	after, err := content.NewCatalog([]content.Item{
		{ID: "niunja_sogi", Kind: content.KindTerminology, Category: "kicks", Term: "L stance", RequiredRank: white},
	})
	require.NoError(t, err)
	assert.NotEqual(t, before.Version(), after.Version())

	src := &swapSource{cat: before}
	h := NewEligibleContentHandler(st, src, &mapCache{m: map[content.CacheKey][]shared.ContentID{}})
	q := EligibleContentQuery{ProfileID: "p1", Category: "stances"}

	warm, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"niunja_sogi"}, ids(warm.Items))

	src.cat = after
	res, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Empty(t, res.Items)
}

func TestEligibleContent_CacheErrorFallsThrough(t *testing.T) {
	st := seedStore(t)
	addProfile(t, st, "p1", "Mina", "10th_keup")
	cache := new(mockCache)
	cache.On("GetEligible", mock.Anything, mock.Anything).Return(nil, false, errors.New("redis down"))
	cache.On("SetEligible", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	res, err := NewEligibleContentHandler(st, staticSource{catalog(t)}, cache).Handle(context.Background(), EligibleContentQuery{ProfileID: "p1"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestGetStudySessions_OnlyOwnSessions(t *testing.T) {
	st := seedStore(t)
	ctx := context.Background()
	addProfile(t, st, "a", "A", "10th_keup")
	addProfile(t, st, "b", "B", "10th_keup")

	for i, pid := range []string{"a", "a", "b"} {
		s, err := session.Start(pid+string(rune('0'+i)), pid, session.TypeFlashcards, nil, now.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		require.NoError(t, s.Complete(now.Add(time.Duration(i)*time.Hour+5*time.Minute), 4, 2))
		require.NoError(t, st.Sessions().Append(ctx, s))
	}

	q := NewLearningQueries(st, time.UTC)
	got, err := q.GetStudySessions(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, "a", s.ProfileID)
	}
	assert.True(t, got[0].EndedAt.After(got[1].EndedAt))
}

func TestSystemStatistics_ComputedEachCall(t *testing.T) {
	st := seedStore(t)
	ctx := context.Background()
	q := NewLearningQueries(st, time.UTC)

	stats, err := q.GetSystemStatistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalProfiles)

	p := addProfile(t, st, "a", "A", "10th_keup")
	p.AddStudyTime(15 * time.Minute)
	require.NoError(t, st.Profiles().Update(ctx, p))
	addProfile(t, st, "b", "B", "10th_keup")

	stats, err = q.GetSystemStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProfiles)
	assert.Equal(t, int64(900), stats.TotalStudySeconds)
}

func TestProfileStatistics_GoalAndLapsedStreak(t *testing.T) {
	st := seedStore(t)
	ctx := context.Background()
	p := addProfile(t, st, "a", "A", "10th_keup")

	s, err := session.Start("s1", "a", session.TypeTesting, nil, now.Add(-25*time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.Complete(now, 10, 8))
	_, err = s.ApplyTo(p, time.UTC)
	require.NoError(t, err)
	require.NoError(t, st.Sessions().Append(ctx, s))
	require.NoError(t, st.Profiles().Update(ctx, p))

	q := NewLearningQueries(st, time.UTC)
	stats, err := q.GetProfileStatistics(ctx, "a", now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.StreakDays)
	assert.True(t, stats.DailyGoalMet)
	assert.True(t, stats.StudiedToday)
	assert.Equal(t, 1, stats.SessionsByType["testing"])

	later, err := q.GetProfileStatistics(ctx, "a", now.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Zero(t, later.StreakDays)
	assert.False(t, later.DailyGoalMet)
	assert.False(t, later.StudiedToday)
}

func TestGradingStatistics(t *testing.T) {
	st := seedStore(t)
	ctx := context.Background()
	addProfile(t, st, "a", "A", "10th_keup")
	q := NewLearningQueries(st, time.UTC)

	empty, err := q.GetGradingStatistics(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, empty.PassRate)
	assert.Nil(t, empty.LastDate)

	for i, passed := range []bool{true, false, true} {
		g, err := grading.NewRecord(grading.NewRecordParams{
			ID: string(rune('x' + i)), ProfileID: "a", BeltTested: rankOf(t, "10th_keup"),
			BeltAchieved: rankOf(t, "9th_keup"), Passed: passed, Date: now.AddDate(0, i, 0),
		}, now)
		require.NoError(t, err)
		require.NoError(t, st.Gradings().Append(ctx, g))
	}

	stats, err := q.GetGradingStatistics(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Passed)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 2.0/3.0, stats.PassRate, 1e-9)

	history, err := q.GetGradingHistory(ctx, "a")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "z", history[0].ID)

	_, err = q.GetGradingStatistics(ctx, "ghost")
	assert.True(t, shared.IsNotFound(err))
}

func TestExport_BundlesEveryProfile(t *testing.T) {
	st := seedStore(t)
	addProfile(t, st, "a", "A", "10th_keup")
	addProfile(t, st, "b", "B", "9th_keup")

	doc, err := NewExportHandler(st, "1.2.0").Handle(context.Background(), ExportProfilesQuery{DeviceName: "tablet"})
	require.NoError(t, err)
	assert.Equal(t, "1.0", doc.ExportVersion)
	assert.Equal(t, "1.2.0", doc.AppVersion)
	require.Len(t, doc.Profiles, 2)
	assert.Equal(t, "9th_keup", doc.Profiles[1].Profile.BeltID)
	assert.NoError(t, doc.Validate())
}
