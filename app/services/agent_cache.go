package services

import (
	"context"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	agentCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_cache_lookups_total",
			Help: "Agent cache lookups by outcome (hit, rebuild, miss)",
		},
		[]string{"outcome"},
	)

	agentCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agent_cache_entries",
			Help: "Number of cached per-user agents",
		},
	)
)

// AgentFactory builds a fresh agent bound to an access token.
type AgentFactory func(accessToken string) (*AdsAgent, error)

// AgentCache hands out one agent per user, keyed by access token. A lookup
// with a token that differs from the cached one rebuilds the agent and
// discards the old entry.
type AgentCache interface {
	GetOrCreateAgent(ctx context.Context, userID uint, accessToken string) (*AdsAgent, error)
	GetOrCreateClient(ctx context.Context, userID uint, accessToken string) (AdsToolClient, error)
	Evict(userID uint)
	// Prewarm builds the agent in the background; the returned cancel stops
	// an in-flight build, and Evict cancels it too.
	Prewarm(userID uint, accessToken string) (cancel func())
	// CancelAll stops every in-flight prewarm; called during shutdown.
	CancelAll()
}

type cachedAgent struct {
	accessToken string
	agent       *AdsAgent
}

type prewarmEntry struct {
	cancel     context.CancelFunc
	generation uint64
}

// AgentCacheImpl implements AgentCache
type AgentCacheImpl struct {
	factory AgentFactory

	mu         sync.Mutex
	agents     map[uint]*cachedAgent
	prewarms   map[uint]prewarmEntry
	generation uint64
}

// NewAgentCache creates an agent cache over the given factory.
func NewAgentCache(factory AgentFactory) AgentCache {
	return &AgentCacheImpl{
		factory:  factory,
		agents:   make(map[uint]*cachedAgent),
		prewarms: make(map[uint]prewarmEntry),
	}
}

// GetOrCreateAgent returns the cached agent when the token still matches,
// otherwise builds a new one. Construction runs outside the lock, so two
// concurrent callers may both build; the last write wins and the loser's
// agent is simply garbage collected.
func (c *AgentCacheImpl) GetOrCreateAgent(ctx context.Context, userID uint, accessToken string) (*AdsAgent, error) {
	c.mu.Lock()
	entry, ok := c.agents[userID]
	c.mu.Unlock()

	if ok && entry.accessToken == accessToken {
		agentCacheHitsTotal.WithLabelValues("hit").Inc()
		return entry.agent, nil
	}

	if ok {
		agentCacheHitsTotal.WithLabelValues("rebuild").Inc()
	} else {
		agentCacheHitsTotal.WithLabelValues("miss").Inc()
	}

	agent, err := c.factory(accessToken)
	if err != nil {
		// A stale entry for a rotated token must not be served on a later
		// lookup, so a failed rebuild clears the user's slot entirely.
		c.mu.Lock()
		delete(c.agents, userID)
		agentCacheSize.Set(float64(len(c.agents)))
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.agents[userID] = &cachedAgent{accessToken: accessToken, agent: agent}
	agentCacheSize.Set(float64(len(c.agents)))
	c.mu.Unlock()

	return agent, nil
}

// GetOrCreateClient returns the tool client of the user's agent.
func (c *AgentCacheImpl) GetOrCreateClient(ctx context.Context, userID uint, accessToken string) (AdsToolClient, error) {
	agent, err := c.GetOrCreateAgent(ctx, userID, accessToken)
	if err != nil {
		return nil, err
	}
	return agent.tools, nil
}

// Evict drops the user's agent and cancels any in-flight prewarm.
func (c *AgentCacheImpl) Evict(userID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.prewarms[userID]; ok {
		entry.cancel()
		delete(c.prewarms, userID)
	}

	delete(c.agents, userID)
	agentCacheSize.Set(float64(len(c.agents)))
}

// CancelAll cancels every in-flight prewarm so shutdown doesn't leave build
// goroutines racing process exit.
func (c *AgentCacheImpl) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for userID, entry := range c.prewarms {
		entry.cancel()
		delete(c.prewarms, userID)
	}
}

// Prewarm builds the user's agent in the background so the first chat
// request doesn't pay the construction cost.
func (c *AgentCacheImpl) Prewarm(userID uint, accessToken string) func() {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if prev, ok := c.prewarms[userID]; ok {
		prev.cancel()
	}
	c.generation++
	generation := c.generation
	c.prewarms[userID] = prewarmEntry{cancel: cancel, generation: generation}
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			if current, ok := c.prewarms[userID]; ok && current.generation == generation {
				delete(c.prewarms, userID)
			}
			c.mu.Unlock()
		}()

		if ctx.Err() != nil {
			return
		}

		agent, err := c.factory(accessToken)
		if err != nil {
			log.Printf("agent cache: prewarm for user %d failed: %v", userID, err)
			return
		}

		// A cancellation that raced the build wins: drop the agent.
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		c.agents[userID] = &cachedAgent{accessToken: accessToken, agent: agent}
		agentCacheSize.Set(float64(len(c.agents)))
		c.mu.Unlock()
	}()

	return cancel
}
