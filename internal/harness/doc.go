// Package harness runs persistence scenarios against an in-memory substrate
// and snapshots the outcome for golden comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	collection: Model
//	quota_bytes: 0          # optional substrate quota, 0 disables it
//	ids: [a, b]             # optional fixed ids for created records
//	seed:                   # optional substrate entries written before start
//	  Model: "a"
//	  Model-a: '{"id":"a"}'
//	steps:
//	  - verb: create
//	    attrs: { title: "first" }
//	    expect:
//	      outcome: success
//	      result: { title: "first" }
//	  - verb: read
//	    id: id-1
//	  - verb: delete
//	    id: id-1
//	  - verb: read          # no id: reads the whole collection
//	    expect:
//	      outcome: success
//	      count: 0
//	assertions:
//	  - type: index
//	    records: []
//	  - type: absent
//	    id: id-1
//	  - type: entry
//	    id: a
//	    expect: { title: "first" }
//	  - type: size
//	    count: 1
//
// # Deterministic Testing
//
// Records created without an id receive "id-1", "id-2", ... unless the
// scenario lists fixed ids. Each step is numbered by a
// testutil.DeterministicClock, so identical scenarios produce byte-identical
// snapshots.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/lifecycle.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
