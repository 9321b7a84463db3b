package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

func registry() *shape.Registry {
	return shape.MustRegistry(
		shape.Define("City").Property("name", shape.Scalar(ir.KindString)).Descriptor(),
		shape.Define("Address").Property("street", shape.Scalar(ir.KindString)).Descriptor(),
		shape.Define("Person").
			Property("name", shape.Scalar(ir.KindString)).
			Property("born", shape.Scalar(ir.KindTime)).
			Property("height", shape.Scalar(ir.KindFloat)).
			Property("tags", shape.Collection(ir.KindString)).
			Property("address", shape.ValueObject("Address")).
			Association("placeOfBirth", "City").
			ManyAssociation("children", "Person").
			NamedAssociation("places", "City").
			Descriptor(),
	)
}

func TestRecordGet(t *testing.T) {
	r := Record{ID: "p-1", Type: "Person", State: ir.IRObject{
		"name":  ir.IRString("Ann"),
		"email": ir.IRNull{},
	}}

	v, ok := r.Get("name")
	require.True(t, ok)
	assert.Equal(t, ir.IRString("Ann"), v)

	_, ok = r.Get("email")
	assert.False(t, ok, "null reads as absent")
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRecordJSONRoundTrip(t *testing.T) {
	born := ir.NewIRTime(time.Date(1975, 3, 1, 0, 0, 0, 0, time.UTC))
	r := Record{ID: "p-1", Type: "Person", State: ir.IRObject{
		"name":         ir.IRString("Ann"),
		"born":         born,
		"placeOfBirth": ir.IREntity("city-kl"),
		"height":       ir.IRFloat(1.62),
	}}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"identity":"p-1","shape":"Person","state":{
		"name":"Ann","born":"1975-03-01T00:00:00.000000000Z","placeOfBirth":"city-kl","height":1.62}}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	norm, err := Normalize(registry(), back)
	require.NoError(t, err)
	assert.Equal(t, r, norm)
}

func TestNormalize(t *testing.T) {
	r := Record{ID: "p-1", Type: "Person", State: ir.IRObject{
		"born":         ir.IRString("1975-03-01"),
		"height":       ir.IRInt(2),
		"tags":         ir.IRArray{ir.IRString("a")},
		"address":      ir.IRObject{"street": ir.IRString("Jalan Ampang")},
		"placeOfBirth": ir.IRString("city-kl"),
		"children":     ir.IRArray{ir.IRString("p-2")},
		"places":       ir.IRObject{"home": ir.IRString("city-kl")},
		"name":         ir.IRNull{},
	}}

	got, err := Normalize(registry(), r)
	require.NoError(t, err)

	assert.Equal(t, ir.NewIRTime(time.Date(1975, 3, 1, 0, 0, 0, 0, time.UTC)), got.State["born"])
	assert.Equal(t, ir.IRFloat(2), got.State["height"])
	assert.Equal(t, ir.IREntity("city-kl"), got.State["placeOfBirth"])
	assert.Equal(t, ir.IRArray{ir.IREntity("p-2")}, got.State["children"])
	assert.Equal(t, ir.IRObject{"home": ir.IREntity("city-kl")}, got.State["places"])
	assert.Equal(t, ir.IRNull{}, got.State["name"])
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr string
	}{
		{"unknown shape", Record{ID: "x", Type: "Martian"}, `unknown shape "Martian"`},
		{"unknown accessor", Record{ID: "x", Type: "Person", State: ir.IRObject{"age": ir.IRInt(1)}}, `no accessor "age"`},
		{"bad time", Record{ID: "x", Type: "Person", State: ir.IRObject{"born": ir.IRString("soon")}}, "Person.born"},
		{"collection scalar", Record{ID: "x", Type: "Person", State: ir.IRObject{"tags": ir.IRString("a")}}, "needs an array"},
		{"named scalar", Record{ID: "x", Type: "Person", State: ir.IRObject{"places": ir.IRString("a")}}, "needs an object"},
		{"value object scalar", Record{ID: "x", Type: "Person", State: ir.IRObject{"address": ir.IRInt(1)}}, "value object needs an object"},
		{"nested unknown", Record{ID: "x", Type: "Person", State: ir.IRObject{"address": ir.IRObject{"zip": ir.IRInt(1)}}}, `Address has no accessor "zip"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(registry(), tt.rec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSet(t *testing.T) {
	s := NewSet(
		Record{ID: "c", Type: "City"},
		Record{ID: "a", Type: "Person", State: ir.IRObject{"name": ir.IRString("old")}},
		Record{ID: "b", Type: "Person"},
	)
	s.Add(Record{ID: "a", Type: "Person", State: ir.IRObject{"name": ir.IRString("new")}})

	assert.Equal(t, 3, s.Len())
	e, ok := s.Resolve("a")
	require.True(t, ok)
	v, _ := e.Get("name")
	assert.Equal(t, ir.IRString("new"), v)

	_, ok = s.Resolve("zzz")
	assert.False(t, ok)

	var ids []string
	for _, e := range s.OfShape("Person") {
		ids = append(ids, e.Identity())
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Len(t, s.Records(), 3)
}

func TestGenerators(t *testing.T) {
	g := NewSequenceGenerator("person")
	assert.Equal(t, "person-1", g.Generate())
	assert.Equal(t, "person-2", g.Generate())
	assert.Equal(t, "entity-1", NewSequenceGenerator("").Generate())

	id := UUIDv7Generator{}.Generate()
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}
