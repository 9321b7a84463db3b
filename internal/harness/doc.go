// Package harness runs conformance scenarios for shape queries.
//
// A scenario loads a set of shapes and fixture entities into every
// backend, runs each query on each of them and checks the results against
// the expectation. Because every backend must agree, a scenario is also a
// cross-backend conformance test.
//
// # Scenario Format
//
//	name: people_cities
//	description: "What this scenario validates"
//	shapes: ../shapes            # CUE package directory
//	backends: [memory, sqlite]   # default: memory, index, sqlite
//	entities:
//	  - identity: city-kl
//	    shape: City
//	    state: {name: Kuala Lumpur}
//	queries:
//	  - name: born_in_penang
//	    shape: Person
//	    where:
//	      and:
//	        - ge: {path: yearOfBirth, value: 1900}
//	        - eq: {path: placeOfBirth.name, var: city}
//	    variables: {city: Penang}
//	    order_by:
//	      - {path: name, desc: true}
//	    first: 0
//	    max: 10
//	    expect:
//	      identities: [person-jack]
//	      count: 1
//
// Predicates are built with the query factories, so paths and values are
// type-checked against the shapes exactly as application code would be.
// A query may instead expect an error code (expect.error), for example
// UNQUERYABLE_ACCESSOR for a path through a hidden accessor.
//
// # Golden Files
//
// RunWithGolden snapshots the rendered SQL and SPARQL of every query
// together with each backend's results as canonical JSON and compares it
// with testdata/golden/<name>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/people_cities.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
