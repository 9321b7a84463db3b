package querysparql

import (
	"fmt"
	"strings"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

// InsertData renders a SPARQL Update that writes records in the graph
// layout Translate queries. Records are normalized against reg first.
func InsertData(reg *shape.Registry, records ...entity.Record) (string, error) {
	w := &writer{reg: reg}
	for _, r := range records {
		nr, err := entity.Normalize(reg, r)
		if err != nil {
			return "", err
		}
		if err := w.record(nr); err != nil {
			return "", fmt.Errorf("entity %s: %w", nr.ID, err)
		}
	}

	var b strings.Builder
	b.WriteString(prefixes)
	b.WriteString("INSERT DATA {\n")
	for _, t := range w.triples {
		b.WriteString("  " + t + " .\n")
	}
	b.WriteString("}")
	return b.String(), nil
}

type writer struct {
	reg     *shape.Registry
	triples []string
	blanks  int
}

func (w *writer) add(s, p, o string) {
	w.triples = append(w.triples, s+" "+p+" "+o)
}

func (w *writer) blank() string {
	b := fmt.Sprintf("_:b%d", w.blanks)
	w.blanks++
	return b
}

func (w *writer) record(r entity.Record) error {
	subj := EntityIRI(r.ID)
	for _, n := range w.reg.Names() {
		if w.reg.AssignableTo(r.Type, n) {
			w.add(subj, "rdf:type", TypeIRI(n))
		}
	}
	w.add(subj, "api:identity", quote(r.ID))
	return w.object(subj, r.Type, r.State)
}

func (w *writer) object(subj, shapeName string, state ir.IRObject) error {
	for _, a := range w.reg.Accessors(shapeName) {
		v, ok := state[a.Name]
		if !ok || ir.IsNull(v) {
			continue
		}
		if err := w.value(subj, a, v); err != nil {
			return fmt.Errorf("%s.%s: %w", shapeName, a.Name, err)
		}
	}
	return nil
}

func (w *writer) value(subj string, a shape.Accessor, v ir.IRValue) error {
	pred := "ns:" + a.Name

	switch {
	case a.Kind == shape.NamedAssociation:
		obj, _ := v.(ir.IRObject)
		for _, name := range obj.SortedKeys() {
			target, err := Literal(obj[name])
			if err != nil {
				return err
			}
			b := w.blank()
			w.add(subj, pred, b)
			w.add(b, "api:name", quote(name))
			w.add(b, "api:target", target)
		}
		return nil

	case a.Value.IsValueObject():
		obj, _ := v.(ir.IRObject)
		b := w.blank()
		w.add(subj, pred, b)
		return w.object(b, a.Value.Shape, obj)

	case a.Kind == shape.ManyAssociation || a.Value.IsCollection():
		arr, _ := v.(ir.IRArray)
		for _, e := range arr {
			lit, err := Literal(e)
			if err != nil {
				return err
			}
			w.add(subj, pred, lit)
		}
		return nil
	}

	lit, err := Literal(v)
	if err != nil {
		return err
	}
	w.add(subj, pred, lit)
	return nil
}
