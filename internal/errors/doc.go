// Package errors provides coded, categorized errors for livestate.
//
// Every error raised by the reactive core or its adapters carries a short
// code (e.g. "E101") that maps to a registered template:
//   - a short message describing the failure
//   - a longer explanation
//   - a documentation URL
//
// # Error Categories
//
//   - node: reads and writes through a wrapped object
//   - path: property path parsing and resolution
//   - config: configuration loading and validation
//   - remote: malformed or unappliable remote events
//   - cli: command line usage
//
// # Usage
//
//	err := errors.New("E101").
//	    WithKey("score").
//	    WithPath("game.round").
//	    WithSuggestion("check the json tag on the field")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E101: Unknown property key
//	//
//	//   game.round -> score
//	//
//	//   The wrapped object has no field or map entry with this key.
//	//
//	//   Hint: check the json tag on the field
//
// Errors compare by code with errors.Is, so callers can match against the
// sentinels exported by the reactive package without caring about detail.
package errors
