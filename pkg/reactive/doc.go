// Package reactive makes plain Go data observable.
//
// Wrapping an object (a pointer to a struct, or a map with string keys)
// yields a *Node. Writes through the Node publish a Change synchronously;
// reads through it return nested objects already wrapped. On top of that the
// package offers path subscriptions that survive replacement of any
// intermediate object, deduplicated combinations of several paths, and a
// Tracker that subscribes a render function to exactly the paths it read.
//
// # Wrapping
//
//	state := &Game{Round: &Round{Number: 1}}
//	root := reactive.MustRoot(state)
//	root.Set("round", &Round{Number: 2}) // publishes {round, old, new}
//
//	reactive.Wrap(reactive.Wrap(state)) == reactive.Wrap(state) // always
//
// Fields are addressed by json tag name or Go field name. Writes whose
// unwrapped value is identical to the stored one publish nothing.
//
// # Paths
//
//	score := reactive.Prop(state, "round.number")
//	off := score.Subscribe(func(v any) { fmt.Println(v) }) // prints 2
//	root.Set("round", &Round{Number: 3})                   // prints 3
//	off()
//
// # Combining
//
//	sum := reactive.Props(state, reactive.Paths("a", "b"), func(v ...any) int {
//	    return v[0].(int) + v[1].(int)
//	})
//
// # Tracking
//
//	t := reactive.NewTracker(state, func(v *reactive.View) string {
//	    return fmt.Sprint(v.Path("round.number"))
//	}, reactive.OnInvalidate(scheduleRender))
//	t.Run()
//
// # Threading
//
// The core assumes a single goroutine mutates and observes a given object
// graph. Publishing runs every subscriber before the write returns, so no
// reader observes a half-applied write. Callers that share a graph between
// goroutines must serialize access themselves.
package reactive
