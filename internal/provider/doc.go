// Package provider ties the router, the file writer and the global level
// together into the logging facility applications use.
//
// A [Provider] is constructed from [Options] and immediately subscribes its
// file writer to every topic with no level override, so anything at or above
// the global level is written to disk. Callers obtain a [Log] per topic and
// log through its leveled methods:
//
//	p, err := provider.New(provider.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//
//	log, _ := p.GetLog("api")
//	log.Info("listening on {0}", addr)
//
//	// Raise the global threshold at runtime
//	p.SetLevel("warn")
//
// Extra subscribers see the same records:
//
//	token, _ := p.Subscribe("db", alert, router.WithLevel(level.Error))
//	defer p.Unsubscribe(token)
//
// # Debug Topics
//
// [Provider.SetDebugTopics] takes glob patterns such as "db*,-db.pool".
// While a list is installed only matching topics emit DEBUG records, and
// those reach level-less subscribers even when the global level is higher.
// Other levels are unaffected.
//
// # Thread Safety
//
// A Provider is safe for concurrent use. Publishing is synchronous: a log
// call returns after every matching subscriber, including the file append,
// has run.
package provider
