package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/application/command"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/infrastructure/curriculum"
	"github.com/tkdojang/dojang/internal/infrastructure/persistence/memory"
)

type fakeExpirer struct {
	got command.ExpireStreaksCommand
	res *command.ExpireStreaksResult
	err error
}

func (f *fakeExpirer) Handle(_ context.Context, cmd command.ExpireStreaksCommand) (*command.ExpireStreaksResult, error) {
	f.got = cmd
	return f.res, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type recordingCache struct{ versions []string }

func (c *recordingCache) Invalidate(_ context.Context, version string) error {
	c.versions = append(c.versions, version)
	return nil
}

func TestExpireStreaksJob(t *testing.T) {
	now := time.Date(2025, 5, 2, 3, 0, 0, 0, time.UTC)
	h := &fakeExpirer{res: &command.ExpireStreaksResult{Checked: 4, Expired: []string{"p1", "p3"}}}
	job := NewExpireStreaksJob(h, nil)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, h.got.Now.Equal(now))

	stats := job.Stats()
	assert.Equal(t, 4, stats.Checked)
	assert.Equal(t, 2, stats.Expired)
	assert.EqualValues(t, 1, stats.Runs)

	h.err = errors.New("store down")
	assert.Error(t, job.Run(context.Background()))
	assert.EqualValues(t, 1, job.Stats().Runs, "failed runs keep the last stats")
}

const termsV1 = `[{"english_term": "Bow", "belt_level": "10th Keup"}]`
const termsV2 = `[{"english_term": "Bow", "belt_level": "10th Keup"},
	{"english_term": "Attention", "belt_level": "10th Keup"}]`

func TestReloadContentJob(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{"terms.json": {Data: []byte(termsV1)}}
	lib := curriculum.NewLibrary(fsys, nil)
	_, err := lib.Reload(ctx)
	require.NoError(t, err)
	before, err := lib.Snapshot(ctx)
	require.NoError(t, err)

	st := memory.New()
	pub := &recordingPublisher{}
	cache := &recordingCache{}
	job := NewReloadContentJob(lib, st.Belts(), cache, pub, nil)

	require.NoError(t, job.Run(ctx))
	assert.Empty(t, pub.events, "unchanged catalog is not announced")
	ranks, err := st.Belts().List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, ranks, "belts are synced on every run")

	fsys["terms.json"] = &fstest.MapFile{Data: []byte(termsV2)}
	require.NoError(t, job.Run(ctx))
	require.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventContentReloaded, pub.events[0].EventType())
	assert.Equal(t, []string{before.Version()}, cache.versions)

	fsys["terms.json"] = &fstest.MapFile{Data: []byte("{")}
	assert.Error(t, job.Run(ctx))
	after, err := lib.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Len())
}
