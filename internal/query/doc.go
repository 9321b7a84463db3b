// Package query builds predicates and query specifications.
//
// The factories take References captured with package template and check
// them against the declared accessor types before any backend is involved:
//
//	person := template.MustFor(reg, "Person")
//	born := person.MustProperty("yearOfBirth")
//	city := person.MustTraverse("placeOfBirth").MustProperty("name")
//
//	spec, err := query.NewBuilder(reg, "Person").
//		Where(query.And(
//			query.Must(query.Ge(born, 1900)),
//			query.Must(query.Eq(city, query.Var("city"))),
//		)).
//		OrderBy(query.MustOrderBy(person.MustProperty("name"))).
//		MaxResults(10).
//		Build()
//
// A Specification is immutable. Variables are bound with Resolve right
// before translation; the translators only ever see literal values.
package query
