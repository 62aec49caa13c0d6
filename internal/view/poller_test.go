package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citport/od-portal-api/internal/models"
)

func TestPollerFetchesImmediatelyAndOnCadence(t *testing.T) {
	var fetches int64
	fetch := func(ctx context.Context) ([]Entry, error) {
		atomic.AddInt64(&fetches, 1)
		return []Entry{{ID: "r1", Status: models.StatusPending}}, nil
	}

	p := NewPoller(fetch, 20*time.Millisecond, zap.NewNop(), nil)
	p.Start(context.Background())
	time.Sleep(70 * time.Millisecond)
	p.Stop()

	got := atomic.LoadInt64(&fetches)
	assert.GreaterOrEqual(t, got, int64(3), "expected the immediate fetch plus scheduled ones")

	snapshot := p.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "r1", snapshot[0].ID)
}

func TestPollerKeepsCollectionOnFetchError(t *testing.T) {
	var calls int64
	fetch := func(ctx context.Context) ([]Entry, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return []Entry{{ID: "r1"}}, nil
		}
		return nil, errors.New("backend down")
	}

	p := NewPoller(fetch, time.Hour, zap.NewNop(), nil)
	p.Refresh(context.Background())
	p.Refresh(context.Background())

	snapshot := p.Snapshot()
	require.Len(t, snapshot, 1, "failed refresh must keep the previous collection")
	assert.Equal(t, "r1", snapshot[0].ID)
}

func TestPollerDiscardsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	var calls int64
	fetch := func(ctx context.Context) ([]Entry, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			// Slow first fetch: it finishes after the second one.
			<-release
			return []Entry{{ID: "stale"}}, nil
		}
		return []Entry{{ID: "fresh"}}, nil
	}

	p := NewPoller(fetch, time.Hour, zap.NewNop(), nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Refresh(context.Background())
	}()
	for atomic.LoadInt64(&calls) == 0 {
		time.Sleep(time.Millisecond)
	}

	p.Refresh(context.Background())
	close(release)
	wg.Wait()

	snapshot := p.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "fresh", snapshot[0].ID, "slow early response must not overwrite a later one")
}

func TestPollerStopIsDeterministic(t *testing.T) {
	fetch := func(ctx context.Context) ([]Entry, error) {
		return nil, nil
	}

	p := NewPoller(fetch, 10*time.Millisecond, zap.NewNop(), nil)
	p.Start(context.Background())
	p.Stop()
	p.Stop() // second stop is a no-op

	// Restart after stop works.
	p.Start(context.Background())
	p.Stop()
}

func TestPollerStartTwiceIsNoOp(t *testing.T) {
	var fetches int64
	fetch := func(ctx context.Context) ([]Entry, error) {
		atomic.AddInt64(&fetches, 1)
		return nil, nil
	}

	p := NewPoller(fetch, time.Hour, zap.NewNop(), nil)
	p.Start(context.Background())
	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches))
}

func TestPollerNotifiesOnUpdate(t *testing.T) {
	updates := make(chan []Entry, 1)
	fetch := func(ctx context.Context) ([]Entry, error) {
		return []Entry{{ID: "r1"}}, nil
	}

	p := NewPoller(fetch, time.Hour, zap.NewNop(), func(entries []Entry) {
		select {
		case updates <- entries:
		default:
		}
	})
	p.Start(context.Background())
	defer p.Stop()

	select {
	case entries := <-updates:
		require.Len(t, entries, 1)
		assert.Equal(t, "r1", entries[0].ID)
	case <-time.After(time.Second):
		t.Fatal("expected an update callback after the immediate fetch")
	}
}

func TestPollerContextCancelStopsLoop(t *testing.T) {
	var fetches int64
	fetch := func(ctx context.Context) ([]Entry, error) {
		atomic.AddInt64(&fetches, 1)
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(fetch, 10*time.Millisecond, zap.NewNop(), nil)
	p.Start(ctx)
	cancel()
	time.Sleep(30 * time.Millisecond)

	before := atomic.LoadInt64(&fetches)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, atomic.LoadInt64(&fetches), "cancelled context must halt the cadence")
}

func TestPollerDefaultInterval(t *testing.T) {
	p := NewPoller(func(ctx context.Context) ([]Entry, error) { return nil, nil }, 0, nil, nil)
	assert.Equal(t, 30*time.Second, p.interval)
}
