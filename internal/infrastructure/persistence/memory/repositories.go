package memory

import (
	"context"
	"sort"
	"time"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BELTS
// ══════════════════════════════════════════════════════════════════════════════

type beltRepo struct{ v *view }

func (r beltRepo) Sync(_ context.Context, ranks []belt.Rank) error {
	st, done := r.v.write()
	defer done()
	for _, rk := range ranks {
		st.belts[rk.ID] = rk
	}
	return nil
}

func (r beltRepo) List(_ context.Context) ([]belt.Rank, error) {
	st, done := r.v.read()
	defer done()
	out := make([]belt.Rank, 0, len(st.belts))
	for _, rk := range st.belts {
		out = append(out, rk)
	}
	belt.SortJuniorFirst(out)
	return out, nil
}

func (r beltRepo) GetByID(_ context.Context, id string) (belt.Rank, error) {
	st, done := r.v.read()
	defer done()
	rk, ok := st.belts[id]
	if !ok {
		return belt.Rank{}, shared.ErrBeltNotFound.Detailf("id %q", id)
	}
	return rk, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILES
// ══════════════════════════════════════════════════════════════════════════════

type profileRepo struct{ v *view }

func (r profileRepo) out(st *state, p *profile.Profile) *profile.Profile {
	c := p.Clone()
	c.Rank = st.resolveRank(c.Rank)
	return c
}

func (r profileRepo) Create(_ context.Context, p *profile.Profile) error {
	st, done := r.v.write()
	defer done()
	if _, exists := st.profiles[p.ID]; exists {
		return shared.ErrProfileExists.Detailf("id %s", p.ID)
	}
	key := profile.NameKey(p.Name)
	for _, other := range st.profiles {
		if profile.NameKey(other.Name) == key {
			return shared.ErrProfileNameTaken
		}
	}
	st.profiles[p.ID] = p.Clone()
	st.order = append(st.order, p.ID)
	return nil
}

func (r profileRepo) GetByID(_ context.Context, id string) (*profile.Profile, error) {
	st, done := r.v.read()
	defer done()
	p, ok := st.profiles[id]
	if !ok {
		return nil, profileNotFound(id)
	}
	return r.out(st, p), nil
}

func (r profileRepo) GetByNameKey(_ context.Context, key string) (*profile.Profile, error) {
	st, done := r.v.read()
	defer done()
	for _, id := range st.order {
		if p := st.profiles[id]; profile.NameKey(p.Name) == key {
			return r.out(st, p), nil
		}
	}
	return nil, shared.ErrProfileNotFound.Detailf("name %q", key)
}

func (r profileRepo) GetActive(_ context.Context) (*profile.Profile, error) {
	st, done := r.v.read()
	defer done()
	for _, id := range st.order {
		if p := st.profiles[id]; p.IsActive {
			return r.out(st, p), nil
		}
	}
	return nil, nil
}

func (r profileRepo) List(_ context.Context) ([]*profile.Profile, error) {
	st, done := r.v.read()
	defer done()
	out := make([]*profile.Profile, 0, len(st.order))
	for _, id := range st.order {
		out = append(out, r.out(st, st.profiles[id]))
	}
	return out, nil
}

func (r profileRepo) Count(_ context.Context) (int, error) {
	st, done := r.v.read()
	defer done()
	return len(st.profiles), nil
}

func (r profileRepo) Update(_ context.Context, p *profile.Profile) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.profiles[p.ID]; !ok {
		return profileNotFound(p.ID)
	}
	key := profile.NameKey(p.Name)
	for id, other := range st.profiles {
		if id != p.ID && profile.NameKey(other.Name) == key {
			return shared.ErrProfileNameTaken
		}
	}
	st.profiles[p.ID] = p.Clone()
	return nil
}

func (r profileRepo) SetActive(_ context.Context, id string, at time.Time) error {
	st, done := r.v.write()
	defer done()
	target, ok := st.profiles[id]
	if !ok {
		return profileNotFound(id)
	}
	for _, p := range st.profiles {
		p.Deactivate()
	}
	target.Activate(at)
	return nil
}

func (r profileRepo) Delete(_ context.Context, id string) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.profiles[id]; !ok {
		return profileNotFound(id)
	}
	delete(st.profiles, id)
	for i, oid := range st.order {
		if oid == id {
			st.order = append(st.order[:i:i], st.order[i+1:]...)
			break
		}
	}
	for k := range st.progress {
		if k.profileID == id {
			delete(st.progress, k)
		}
	}
	delete(st.sessions, id)
	delete(st.gradings, id)
	return nil
}

func profileNotFound(id string) error {
	return shared.ErrProfileNotFound.Detailf("id %s", id)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

type progressRepo struct{ v *view }

func (r progressRepo) GetOrCreate(_ context.Context, candidate *progress.Record) (*progress.Record, error) {
	st, done := r.v.write()
	defer done()
	if _, ok := st.profiles[candidate.ProfileID]; !ok {
		return nil, profileNotFound(candidate.ProfileID)
	}
	k := progressKey{candidate.ProfileID, candidate.ContentID}
	if existing, ok := st.progress[k]; ok {
		return existing.Clone(), nil
	}
	st.progress[k] = candidate.Clone()
	return candidate.Clone(), nil
}

func (r progressRepo) Get(_ context.Context, profileID string, contentID shared.ContentID) (*progress.Record, error) {
	st, done := r.v.read()
	defer done()
	rec, ok := st.progress[progressKey{profileID, contentID}]
	if !ok {
		return nil, shared.ErrProgressNotFound.Detailf("%s/%s", profileID, contentID)
	}
	return rec.Clone(), nil
}

func (r progressRepo) Update(_ context.Context, rec *progress.Record) error {
	st, done := r.v.write()
	defer done()
	k := progressKey{rec.ProfileID, rec.ContentID}
	existing, ok := st.progress[k]
	if !ok || existing.ID != rec.ID {
		return shared.ErrProgressNotFound.Detailf("id %s", rec.ID)
	}
	st.progress[k] = rec.Clone()
	return nil
}

func (r progressRepo) ListByProfile(_ context.Context, profileID string) ([]*progress.Record, error) {
	st, done := r.v.read()
	defer done()
	var out []*progress.Record
	for k, rec := range st.progress {
		if k.profileID == profileID {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	return out, nil
}

func (r progressRepo) Insert(_ context.Context, rec *progress.Record) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.profiles[rec.ProfileID]; !ok {
		return profileNotFound(rec.ProfileID)
	}
	k := progressKey{rec.ProfileID, rec.ContentID}
	if _, exists := st.progress[k]; exists {
		return shared.ErrProgressExists.Detailf("%s/%s", rec.ProfileID, rec.ContentID)
	}
	st.progress[k] = rec.Clone()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

type sessionRepo struct{ v *view }

func (r sessionRepo) Append(_ context.Context, s *session.Session) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.profiles[s.ProfileID]; !ok {
		return profileNotFound(s.ProfileID)
	}
	c := *s
	c.FocusAreas = append([]string(nil), s.FocusAreas...)
	st.sessions[s.ProfileID] = append(st.sessions[s.ProfileID], &c)
	return nil
}

func (r sessionRepo) ListByProfile(_ context.Context, profileID string, limit int) ([]*session.Session, error) {
	st, done := r.v.read()
	defer done()
	stored := st.sessions[profileID]
	out := make([]*session.Session, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		c := *stored[i]
		c.FocusAreas = append([]string(nil), c.FocusAreas...)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r sessionRepo) CountAll(_ context.Context) (int, error) {
	st, done := r.v.read()
	defer done()
	n := 0
	for _, list := range st.sessions {
		n += len(list)
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADINGS
// ══════════════════════════════════════════════════════════════════════════════

type gradingRepo struct{ v *view }

func (r gradingRepo) Append(_ context.Context, g *grading.Record) error {
	st, done := r.v.write()
	defer done()
	if _, ok := st.profiles[g.ProfileID]; !ok {
		return profileNotFound(g.ProfileID)
	}
	c := *g
	st.gradings[g.ProfileID] = append(st.gradings[g.ProfileID], &c)
	return nil
}

func (r gradingRepo) ListByProfile(_ context.Context, profileID string) ([]*grading.Record, error) {
	st, done := r.v.read()
	defer done()
	stored := st.gradings[profileID]
	out := make([]*grading.Record, 0, len(stored))
	for _, g := range stored {
		c := *g
		c.BeltTested = st.resolveRank(c.BeltTested)
		c.BeltAchieved = st.resolveRank(c.BeltAchieved)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
