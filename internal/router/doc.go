// Package router provides the publish/subscribe bus that delivers log
// records to subscribers.
//
// A subscription pairs a topic pattern with a handler and, optionally, its
// own minimum level. The pattern is either [AllTopics] ("*") or an exact
// topic. A record is delivered when the topic matches and the record's level
// is at or above the subscription's threshold: its override if it has one,
// otherwise the router's effective level at the moment of publishing.
//
// # Thread Safety
//
// The [Router] is safe for concurrent use. The registry is guarded by a
// RWMutex and the effective level is atomic. Delivery is synchronous: a
// publish returns only after every matching handler has run, on the
// publisher's goroutine, so a slow handler slows the caller down.
//
// # Basic Usage
//
//	r := router.New(level.Info)
//
//	// Everything at the router's level or above
//	token, err := r.Subscribe(router.AllTopics, func(rec record.Record) error {
//	    fmt.Println(rec.Message)
//	    return nil
//	})
//
//	// Only "db" records at WARN or above, whatever the router level
//	r.Subscribe("db", handler, router.WithLevel(level.Warn))
//
//	err = r.Publish(record.New(level.Info, "api", "ready"))
//
//	r.Unsubscribe(token)
//
// Unsubscribing a token that is not live is a no-op.
package router
