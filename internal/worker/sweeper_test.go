package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSwitchboard struct {
	mu        sync.Mutex
	ttls      []time.Duration
	retention []time.Duration
	online    []string
	inClass   map[string]bool
}

func (f *fakeSwitchboard) ExpireStale(_ context.Context, ttl time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls = append(f.ttls, ttl)
	return 1
}

func (f *fakeSwitchboard) PruneEnded(_ context.Context, retention time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retention = append(f.retention, retention)
	return 0
}

func (f *fakeSwitchboard) OnlineStaff() []string { return f.online }

func (f *fakeSwitchboard) SetInClass(_ context.Context, staffID string, inClass bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inClass == nil {
		f.inClass = map[string]bool{}
	}
	f.inClass[staffID] = inClass
}

func (f *fakeSwitchboard) sweeps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ttls)
}

type fakeTimetable map[string]error

func (f fakeTimetable) ReadCurrentClassStatus(_ context.Context, staffID string) (bool, error) {
	if err, ok := f[staffID]; ok && err != nil {
		return false, err
	}
	_, ok := f[staffID]
	return ok, nil
}

func TestSweepPassesConfiguredWindows(t *testing.T) {
	sb := &fakeSwitchboard{}
	s := NewQueueSweeper(sb, time.Minute, 4*time.Hour, 10*time.Minute, zaptest.NewLogger(t))
	s.Sweep(context.Background())

	assert.Equal(t, []time.Duration{4 * time.Hour}, sb.ttls)
	assert.Equal(t, []time.Duration{10 * time.Minute}, sb.retention)
}

func TestSweeperRunsOnTicker(t *testing.T) {
	sb := &fakeSwitchboard{}
	s := NewQueueSweeper(sb, 5*time.Millisecond, time.Hour, time.Minute, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sb.sweeps() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRefreshLeavesFlagOnReadFailure(t *testing.T) {
	sb := &fakeSwitchboard{
		online:  []string{"s1", "s2", "s3"},
		inClass: map[string]bool{"s3": true},
	}
	tt := fakeTimetable{"s1": nil, "s3": errors.New("timetable unavailable")}
	NewPresenceRefresher(sb, tt, time.Minute, zaptest.NewLogger(t)).Refresh(context.Background())

	assert.True(t, sb.inClass["s1"])
	assert.False(t, sb.inClass["s2"])
	assert.True(t, sb.inClass["s3"], "flag untouched after failed read")
}

func TestNewPresenceRefresherDefaultsInterval(t *testing.T) {
	r := NewPresenceRefresher(&fakeSwitchboard{}, fakeTimetable{}, 0, zaptest.NewLogger(t))
	assert.Equal(t, time.Minute, r.interval)
}
