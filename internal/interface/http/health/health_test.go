package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestComposite(t *testing.T) {
	c := NewComposite("1.2.3")
	st := c.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.Equal(t, "1.2.3", st.Version)

	c.AddCheck("store", PingCheck(pinger{}))
	c.AddCheck("redis", PingCheck(pinger{err: errors.New("connection refused")}))
	st = c.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.Equal(t, "Some checks failed: redis", st.Message)
	assert.True(t, st.Checks["store"].Healthy)
	assert.Equal(t, "connection refused", st.Checks["redis"].Message)
}

func TestComposite_Timeout(t *testing.T) {
	c := NewComposite("")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	st := c.Check(context.Background())
	assert.False(t, st.Healthy)
}
