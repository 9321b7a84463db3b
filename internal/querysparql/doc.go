// Package querysparql renders query Specifications as SPARQL 1.1 SELECT
// queries over an entity graph laid out as follows:
//
//	<urn:shapeq:entity:ID> rdf:type <urn:shapeq:type:S>   for S and every supertype
//	<urn:shapeq:entity:ID> api:identity "ID"
//	<e> ns:name "Ann Doe"                                    properties
//	<e> ns:tags "chess" ; ns:tags "cooking"                  one triple per collection element
//	<e> ns:address _:b . _:b ns:street "Jalan Ampang"        value objects
//	<e> ns:placeOfBirth <urn:shapeq:entity:city-kl>          associations, one per element of a many association
//	<e> ns:places _:n . _:n api:name "home" ; api:target <c> named associations
//
// InsertData renders records in this layout.
//
// Single-valued paths are matched once per entity in OPTIONAL groups so
// ORDER BY can see them and FILTER can test them with bound(). Paths through
// many or named associations and collection elements are tested inside
// EXISTS groups, which keeps "any element" semantics under negation.
package querysparql
