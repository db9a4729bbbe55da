// Package dispatch routes persistence verbs to a collection's storage engine.
//
// A Dispatcher receives a verb ("read", "create", "update", "delete"), a
// target that can resolve its engine, and optional callbacks. It runs the
// matching engine operation and reports the outcome through exactly one of
// Success or Error, followed by Complete:
//
//	err := dispatch.Sync(dispatch.VerbCreate, model, &dispatch.Options{
//	    Success:  func(resp any) { ... },
//	    Error:    func(msg string) { ... },
//	    Complete: func(resp any) { ... },
//	})
//
// Engine failures never escape Sync; they are classified into a message for
// the Error callback. Sync returns an error only when the target cannot
// resolve an engine.
package dispatch
