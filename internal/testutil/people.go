// Package testutil provides the shared people/cities fixture used across
// package tests.
package testutil

import (
	"time"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

// PeopleCUE is the CUE form of the fixture shapes returned by People.
const PeopleCUE = `
shape: Nameable: property: name: string

shape: City: {
	extends: "Nameable"
	property: country: string
}

shape: Address: property: {
	street: string
	city:   string
}

shape: Person: {
	extends: "Nameable"
	property: {
		yearOfBirth: int
		height:      float
		born:        {type: "time"}
		email:       string
		tags:        [...string]
		address:     {shape: "Address"}
		password:    {type: "string", queryable: false}
	}
	association: placeOfBirth: "City"
	manyAssociation: children: "Person"
	namedAssociation: places: "City"
}
`

// People returns the fixture shape registry.
func People() *shape.Registry {
	return shape.MustRegistry(
		shape.Define("Nameable").
			Property("name", shape.Scalar(ir.KindString)).
			Descriptor(),
		shape.Define("City", "Nameable").
			Property("country", shape.Scalar(ir.KindString)).
			Descriptor(),
		shape.Define("Address").
			Property("street", shape.Scalar(ir.KindString)).
			Property("city", shape.Scalar(ir.KindString)).
			Descriptor(),
		shape.Define("Person", "Nameable").
			Property("yearOfBirth", shape.Scalar(ir.KindInt)).
			Property("height", shape.Scalar(ir.KindFloat)).
			Property("born", shape.Scalar(ir.KindTime)).
			Property("email", shape.Scalar(ir.KindString)).
			Property("tags", shape.Collection(ir.KindString)).
			Property("address", shape.ValueObject("Address")).
			Hidden("password", shape.Scalar(ir.KindString)).
			Association("placeOfBirth", "City").
			ManyAssociation("children", "Person").
			NamedAssociation("places", "City").
			Descriptor(),
	)
}

// Fixture identities.
const (
	KualaLumpur = "city-kl"
	Penang      = "city-penang"
	Ann         = "person-ann"
	Joe         = "person-joe"
	Jack        = "person-jack"
	Vivian      = "person-vivian"
)

func day(y int, m time.Month, d int) ir.IRTime {
	return ir.NewIRTime(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func strs(ss ...string) ir.IRArray {
	arr := make(ir.IRArray, len(ss))
	for i, s := range ss {
		arr[i] = ir.IRString(s)
	}
	return arr
}

// PeopleRecords returns two cities and four people:
//
//	Ann Doe      1975  Kuala Lumpur
//	Joe Doe      1990  Kuala Lumpur
//	Jack Doe     1970  Penang
//	Vivian Smith 1992  Kuala Lumpur
//
// Records are returned cities first, then people in the order above.
func PeopleRecords() []entity.Record {
	return []entity.Record{
		{ID: KualaLumpur, Type: "City", State: ir.IRObject{
			"name":    ir.IRString("Kuala Lumpur"),
			"country": ir.IRString("Malaysia"),
		}},
		{ID: Penang, Type: "City", State: ir.IRObject{
			"name":    ir.IRString("Penang"),
			"country": ir.IRString("Malaysia"),
		}},
		{ID: Ann, Type: "Person", State: ir.IRObject{
			"name":         ir.IRString("Ann Doe"),
			"yearOfBirth":  ir.IRInt(1975),
			"height":       ir.IRFloat(1.62),
			"born":         day(1975, time.March, 1),
			"email":        ir.IRString("ann@doe.example"),
			"tags":         strs("cooking", "chess"),
			"address":      ir.IRObject{"street": ir.IRString("Jalan Ampang"), "city": ir.IRString("Kuala Lumpur")},
			"password":     ir.IRString("ann-secret"),
			"placeOfBirth": ir.IREntity(KualaLumpur),
			"children":     ir.IRArray{ir.IREntity(Joe)},
			"places":       ir.IRObject{"home": ir.IREntity(KualaLumpur), "work": ir.IREntity(Penang)},
		}},
		{ID: Joe, Type: "Person", State: ir.IRObject{
			"name":         ir.IRString("Joe Doe"),
			"yearOfBirth":  ir.IRInt(1990),
			"height":       ir.IRFloat(1.80),
			"born":         day(1990, time.June, 15),
			"email":        ir.IRNull{},
			"tags":         strs("chess"),
			"password":     ir.IRString("joe-secret"),
			"placeOfBirth": ir.IREntity(KualaLumpur),
			"children":     ir.IRArray{},
			"places":       ir.IRObject{"home": ir.IREntity(KualaLumpur)},
		}},
		{ID: Jack, Type: "Person", State: ir.IRObject{
			"name":         ir.IRString("Jack Doe"),
			"yearOfBirth":  ir.IRInt(1970),
			"height":       ir.IRFloat(1.75),
			"born":         day(1970, time.November, 20),
			"email":        ir.IRString("jack@doe.example"),
			"tags":         strs(),
			"address":      ir.IRObject{"street": ir.IRString("Lebuh Chulia"), "city": ir.IRString("Penang")},
			"password":     ir.IRString("jack-secret"),
			"placeOfBirth": ir.IREntity(Penang),
			"children":     ir.IRArray{ir.IREntity(Joe)},
			"places":       ir.IRObject{"home": ir.IREntity(Penang)},
		}},
		{ID: Vivian, Type: "Person", State: ir.IRObject{
			"name":         ir.IRString("Vivian Smith"),
			"yearOfBirth":  ir.IRInt(1992),
			"height":       ir.IRFloat(1.68),
			"born":         day(1992, time.January, 5),
			"email":        ir.IRString("vivian@smith.example"),
			"tags":         strs("cooking"),
			"password":     ir.IRString("vivian-secret"),
			"placeOfBirth": ir.IREntity(KualaLumpur),
			"children":     ir.IRArray{},
			"places":       ir.IRObject{},
		}},
	}
}

// PeopleSet returns PeopleRecords as an entity.Set.
func PeopleSet() *entity.Set {
	return entity.NewSet(PeopleRecords()...)
}

// Names extracts the "name" property of each entity, in order.
func Names(es []entity.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		if v, ok := e.Get("name"); ok {
			if s, ok := v.(ir.IRString); ok {
				out = append(out, string(s))
				continue
			}
		}
		out = append(out, "<"+e.Identity()+">")
	}
	return out
}
