package querysparql

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/roach88/shapeq/internal/ir"
)

// Namespace IRIs.
const (
	RDF      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSD      = "http://www.w3.org/2001/XMLSchema#"
	API      = "urn:shapeq:api:"
	Accessor = "urn:shapeq:accessor:"
)

const prefixes = "PREFIX api: <" + API + ">\n" +
	"PREFIX ns: <" + Accessor + ">\n" +
	"PREFIX rdf: <" + RDF + ">\n" +
	"PREFIX xsd: <" + XSD + ">\n"

// EntityIRI returns the IRI of an entity.
func EntityIRI(identity string) string {
	return "<urn:shapeq:entity:" + url.PathEscape(identity) + ">"
}

// TypeIRI returns the IRI of a shape.
func TypeIRI(shapeName string) string {
	return "<urn:shapeq:type:" + url.PathEscape(shapeName) + ">"
}

// Literal renders v as a SPARQL term. Times use xsd:dateTime in
// ir.TimeLayout and entity references their EntityIRI.
func Literal(v ir.IRValue) (string, error) {
	switch val := v.(type) {
	case ir.IRString:
		return quote(string(val)), nil
	case ir.IRInt:
		return typed(strconv.FormatInt(int64(val), 10), "integer"), nil
	case ir.IRFloat:
		return typed(strconv.FormatFloat(float64(val), 'g', -1, 64), "double"), nil
	case ir.IRBool:
		return typed(strconv.FormatBool(bool(val)), "boolean"), nil
	case ir.IRTime:
		return typed(val.String(), "dateTime"), nil
	case ir.IREntity:
		return EntityIRI(val.Identity()), nil
	case nil:
		return "", fmt.Errorf("missing value")
	}
	return "", fmt.Errorf("no SPARQL literal for %s", v.Kind())
}

func typed(lexical, datatype string) string {
	return `"` + lexical + `"^^xsd:` + datatype
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}

// Prefixes returns the PREFIX block every generated query starts with.
func Prefixes() string { return prefixes }
