package router

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/record"
)

// AllTopics is the topic pattern that matches every record.
const AllTopics = "*"

// Handler receives a record delivered by the router. A non-nil error is
// returned to the publisher.
type Handler func(record.Record) error

// subscription represents a registered record handler.
type subscription struct {
	token    string
	topic    string
	level    level.Level
	hasLevel bool
	handler  Handler
}

// matches reports whether the subscription wants rec, given the effective
// level used for subscriptions without an override.
func (s subscription) matches(rec record.Record, effective level.Level) bool {
	if s.topic != AllTopics && s.topic != rec.Topic {
		return false
	}
	threshold := effective
	if s.hasLevel {
		threshold = s.level
	}
	return threshold < level.Off && rec.Level.Enabled(threshold)
}

// SubscribeOption customises a subscription.
type SubscribeOption func(*subscription) error

// WithLevel gives the subscription its own minimum level instead of
// following the router's effective level.
func WithLevel(l level.Level) SubscribeOption {
	return func(s *subscription) error {
		if !l.Valid() {
			return errors.NewLevelError(int(l), "subscription level out of range")
		}
		s.level = l
		s.hasLevel = true
		return nil
	}
}

// Router is a synchronous publish/subscribe bus for log records with
// per-subscription topic and level gating.
type Router struct {
	mu            sync.RWMutex
	subscriptions []subscription // registration order
	tokens        map[string]struct{}

	effective atomic.Int32
	logger    *slog.Logger
	newToken  func() string
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used to report recovered handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTokenSource replaces the token generator. Generated tokens that are
// already live are discarded and a new one is requested.
func WithTokenSource(next func() string) Option {
	return func(r *Router) {
		if next != nil {
			r.newToken = next
		}
	}
}

// New creates a router whose effective level is initial.
func New(initial level.Level, opts ...Option) *Router {
	r := &Router{
		tokens:   make(map[string]struct{}),
		logger:   slog.Default(),
		newToken: func() string { return "sub-" + uuid.NewString() },
	}
	r.effective.Store(int32(initial))
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Level returns the current effective level.
func (r *Router) Level() level.Level {
	return level.Level(r.effective.Load())
}

// SetLevel parses v and makes it the effective level. Subscriptions without
// an override follow the new level from the next publish on.
func (r *Router) SetLevel(v any) error {
	l, err := level.Parse(v)
	if err != nil {
		return err
	}
	r.effective.Store(int32(l))
	return nil
}

// Subscribe registers a handler for records whose topic equals topic, or for
// every record when topic is AllTopics. It returns the token used to
// unsubscribe.
func (r *Router) Subscribe(topic string, handler Handler, opts ...SubscribeOption) (string, error) {
	if topic == "" {
		return "", errors.NewValidationError("topic must not be empty").WithField("topic")
	}
	if handler == nil {
		return "", errors.NewValidationError("handler must not be nil").WithField("handler")
	}

	sub := subscription{topic: topic, handler: handler}
	for _, opt := range opts {
		if err := opt(&sub); err != nil {
			return "", err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sub.token = r.generateToken()
	r.tokens[sub.token] = struct{}{}
	r.subscriptions = append(r.subscriptions, sub)
	return sub.token, nil
}

// Unsubscribe removes a subscription by token. Unknown tokens are ignored.
func (r *Router) Unsubscribe(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token]; !ok {
		return
	}
	delete(r.tokens, token)
	for i, sub := range r.subscriptions {
		if sub.token == token {
			r.subscriptions = append(r.subscriptions[:i:i], r.subscriptions[i+1:]...)
			return
		}
	}
}

// Publish delivers rec to every matching subscription using the router's
// effective level.
func (r *Router) Publish(rec record.Record) error {
	return r.PublishAt(rec, r.Level())
}

// PublishAt delivers rec to every matching subscription, gating
// subscriptions without an override at effective. Handlers run
// synchronously in registration order on a snapshot of the registry, so a
// handler may subscribe or unsubscribe without deadlocking. Errors from
// handlers, including recovered panics, are joined and returned after every
// matching handler has run. Records at All or Off are rejected.
func (r *Router) PublishAt(rec record.Record, effective level.Level) error {
	if rec.Level <= level.All || rec.Level >= level.Off {
		return errors.NewLevelError(int(rec.Level), "not a record level").WithSource("record")
	}

	r.mu.RLock()
	subs := make([]subscription, len(r.subscriptions))
	copy(subs, r.subscriptions)
	r.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if !sub.matches(rec, effective) {
			continue
		}
		if err := r.safeCall(sub, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// safeCall invokes a handler and recovers from any panics.
// Panics are logged with stack traces and converted into an error.
func (r *Router) safeCall(sub subscription, rec record.Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("log subscriber panicked",
				"token", sub.token,
				"topic", rec.Topic,
				"panic", p,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("subscriber %s panicked: %v", sub.token, p)
		}
	}()
	return sub.handler(rec)
}

// generateToken returns a token that is not live. The caller must hold mu.
func (r *Router) generateToken() string {
	for {
		token := r.newToken()
		if _, taken := r.tokens[token]; !taken && token != "" {
			return token
		}
	}
}

// Clear removes all subscriptions.
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions = nil
	r.tokens = make(map[string]struct{})
}

// Len returns the number of live subscriptions.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscriptions)
}
