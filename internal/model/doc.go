// Package model provides attribute-map models and collections whose
// persistence verbs are routed to a storage engine.
//
// A Type is attached to a substrate once:
//
//	var Todo = &model.Type{Name: "Todo"}
//	if err := model.Attach(Todo, sub, "Todo"); err != nil { ... }
//
//	m := model.New(Todo, map[string]any{"title": "write tests"})
//	m.Save(nil) // assigns an id and stores the record
//	m.Fetch(nil)
//	m.Destroy(nil)
//
// Every model of the type shares the engine Attach installs. A Collection of
// the type reads all stored records with Fetch.
package model
