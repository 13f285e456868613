package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFactory builds agents and tracks how often it was invoked.
type countingFactory struct {
	mu    sync.Mutex
	calls int32
	last  *AdsAgent

	// when set, every build blocks until the channel is closed
	release chan struct{}
	started chan struct{}
}

func (f *countingFactory) build(accessToken string) (*AdsAgent, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	atomic.AddInt32(&f.calls, 1)

	agent := NewAdsAgent(NewMockLLMClient(), NewMockAdsToolClient(), accessToken, 5)
	f.mu.Lock()
	f.last = agent
	f.mu.Unlock()
	return agent, nil
}

func (f *countingFactory) lastAgent() *AdsAgent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func TestAgentCacheReturnsSameAgentForSameToken(t *testing.T) {
	factory := &countingFactory{}
	cache := NewAgentCache(factory.build)

	first, err := cache.GetOrCreateAgent(context.Background(), 1, "token-a")
	require.NoError(t, err)

	second, err := cache.GetOrCreateAgent(context.Background(), 1, "token-a")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&factory.calls))
}

func TestAgentCacheRebuildsOnTokenChange(t *testing.T) {
	factory := &countingFactory{}
	cache := NewAgentCache(factory.build)

	first, err := cache.GetOrCreateAgent(context.Background(), 1, "token-a")
	require.NoError(t, err)

	second, err := cache.GetOrCreateAgent(context.Background(), 1, "token-b")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&factory.calls))

	// The rebuilt agent is now the cached one
	third, err := cache.GetOrCreateAgent(context.Background(), 1, "token-b")
	require.NoError(t, err)
	assert.Same(t, second, third)
	assert.Equal(t, int32(2), atomic.LoadInt32(&factory.calls))
}

func TestAgentCacheFailedRebuildDropsStaleEntry(t *testing.T) {
	var calls int32
	factory := func(accessToken string) (*AdsAgent, error) {
		atomic.AddInt32(&calls, 1)
		if accessToken == "token-b" {
			return nil, errors.New("tool config unreachable")
		}
		return NewAdsAgent(NewMockLLMClient(), NewMockAdsToolClient(), accessToken, 5), nil
	}
	cache := NewAgentCache(factory)

	first, err := cache.GetOrCreateAgent(context.Background(), 1, "token-a")
	require.NoError(t, err)

	// The rebuild for the rotated token fails
	_, err = cache.GetOrCreateAgent(context.Background(), 1, "token-b")
	require.Error(t, err)

	// The old entry must be gone: a lookup with the old token rebuilds
	// instead of serving the agent the failed rebuild tried to replace.
	third, err := cache.GetOrCreateAgent(context.Background(), 1, "token-a")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAgentCacheEvictDropsAgent(t *testing.T) {
	factory := &countingFactory{}
	cache := NewAgentCache(factory.build)

	_, err := cache.GetOrCreateAgent(context.Background(), 7, "token-a")
	require.NoError(t, err)

	cache.Evict(7)

	_, err = cache.GetOrCreateAgent(context.Background(), 7, "token-a")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&factory.calls))
}

func TestAgentCacheIsolatesUsers(t *testing.T) {
	factory := &countingFactory{}
	cache := NewAgentCache(factory.build)

	first, err := cache.GetOrCreateAgent(context.Background(), 1, "token-a")
	require.NoError(t, err)

	second, err := cache.GetOrCreateAgent(context.Background(), 2, "token-a")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&factory.calls))
}

func TestAgentCachePrewarmPopulatesCache(t *testing.T) {
	factory := &countingFactory{}
	cache := NewAgentCache(factory.build)

	cancel := cache.Prewarm(3, "token-a")
	defer cancel()

	assert.Eventually(t, func() bool {
		agent, err := cache.GetOrCreateAgent(context.Background(), 3, "token-a")
		return err == nil && agent == factory.lastAgent()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAgentCacheEvictCancelsInflightPrewarm(t *testing.T) {
	factory := &countingFactory{
		release: make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	cache := NewAgentCache(factory.build)

	cache.Prewarm(4, "token-a")
	<-factory.started

	// Evict while the build is still blocked; its result must be dropped.
	cache.Evict(4)
	close(factory.release)

	agent, err := cache.GetOrCreateAgent(context.Background(), 4, "token-a")
	require.NoError(t, err)
	require.NotNil(t, agent)

	// The second build came from the lookup, not the cancelled prewarm.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&factory.calls) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAgentCacheCancelAllStopsInflightPrewarms(t *testing.T) {
	factory := &countingFactory{
		release: make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	cache := NewAgentCache(factory.build)

	cache.Prewarm(5, "token-a")
	cache.Prewarm(6, "token-b")
	<-factory.started
	<-factory.started

	// Shutdown cancels both builds while they are still blocked.
	cache.CancelAll()
	close(factory.release)

	// Neither cancelled build populated the cache; the lookup rebuilds.
	agent, err := cache.GetOrCreateAgent(context.Background(), 5, "token-a")
	require.NoError(t, err)
	require.NotNil(t, agent)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&factory.calls) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAgentCacheGetOrCreateClient(t *testing.T) {
	factory := &countingFactory{}
	cache := NewAgentCache(factory.build)

	client, err := cache.GetOrCreateClient(context.Background(), 1, "token-a")
	require.NoError(t, err)
	assert.NotNil(t, client)

	// The client belongs to the cached agent; no rebuild on the second call.
	_, err = cache.GetOrCreateClient(context.Background(), 1, "token-a")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&factory.calls))
}
