// Package relations implements the relationship graph engine: connection
// requests, follows, blocking, contact mirroring and suggestions.
//
// State transitions are decided by the pure Decide* functions in
// transition.go. The Engine persists the decided write and then hands the
// transition's effects to an Executor, which runs them best-effort.
package relations

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

// Engine is the entry point for every relationship operation.
type Engine struct {
	store       Store
	follows     *FollowSynchronizer
	contacts    *ContactSynchronizer
	blocks      *BlockGuard
	suggestions *SuggestionEngine
	effects     *Executor
	log         *slog.Logger
	now         func() time.Time
}

type options struct {
	log       *slog.Logger
	publisher EventPublisher
	cache     SuggestionCache
	now       func() time.Time
	shuffle   func(n int, swap func(i, j int))
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger used for side-effect failures and degraded tiers.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithPublisher sets where relationship events are delivered.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithSuggestionCache enables caching of suggestion lists.
func WithSuggestionCache(c SuggestionCache) Option {
	return func(o *options) { o.cache = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithShuffle overrides the shuffle applied to suggestion lists.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(o *options) { o.shuffle = shuffle }
}

// NewEngine wires the engine and its components on top of store.
func NewEngine(store Store, opts ...Option) *Engine {
	o := options{
		log:     slog.Default(),
		now:     time.Now,
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{store: store, log: o.log, now: o.now}
	e.follows = &FollowSynchronizer{follows: store, conns: store}
	e.contacts = &ContactSynchronizer{contacts: store, accounts: store}
	e.effects = &Executor{
		follows:   e.follows,
		contacts:  e.contacts,
		publisher: o.publisher,
		cache:     o.cache,
		log:       o.log,
		now:       o.now,
	}
	e.blocks = &BlockGuard{store: store, effects: e.effects}
	e.suggestions = &SuggestionEngine{
		store:   store,
		blocks:  e.blocks,
		cache:   o.cache,
		shuffle: o.shuffle,
		log:     o.log,
	}
	return e
}

// Follows returns the follow synchronizer.
func (e *Engine) Follows() *FollowSynchronizer { return e.follows }

// Contacts returns the contact synchronizer.
func (e *Engine) Contacts() *ContactSynchronizer { return e.contacts }

// Blocks returns the block guard.
func (e *Engine) Blocks() *BlockGuard { return e.blocks }

// Suggestions returns the suggestion engine.
func (e *Engine) Suggestions() *SuggestionEngine { return e.suggestions }
