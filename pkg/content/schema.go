package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/report"
)

const (
	xsElement      = "xs:element"
	xsComplexType  = "xs:complexType"
	xsSimpleType   = "xs:simpleType"
	xsSequence     = "xs:sequence"
	xsAttribute    = "xs:attribute"
	xsRestriction  = "xs:restriction"
	digestTypeType = "digestTypeType"
)

// XSDType maps a column type to the schema type of its cells. ok is false
// for types the schema cannot describe.
func XSDType(t am.Type) (string, bool) {
	switch v := t.(type) {
	case am.SimpleString:
		if v.Large {
			return "clobType", true
		}
		return "xs:string", true
	case am.SimpleNumericExact:
		std := v.Standard()
		if strings.HasPrefix(std, "DECIMAL") || strings.HasPrefix(std, "NUMERIC") || v.Scale > 0 {
			return "xs:decimal", true
		}
		return "xs:integer", true
	case am.SimpleNumericApproximate:
		if v.Precision > 0 && v.Precision <= 24 {
			return "xs:float", true
		}
		return "xs:double", true
	case am.SimpleBoolean:
		return "xs:boolean", true
	case am.SimpleDateTime:
		switch {
		case !v.TimePart:
			return "dateType", true
		case v.IsTimeOfDay():
			return "timeType", true
		}
		return "dateTimeType", true
	case am.SimpleBinary:
		if v.Large {
			return "blobType", true
		}
		return "xs:hexBinary", true
	case am.Unsupported:
		return "xs:string", true
	}
	return "", false
}

func (e *Encoder) writeSchema(ctx context.Context, t *Table) error {
	path := TableXSDPath(t.SchemaIndex, t.Index)
	out, err := e.main.Create(ctx, "", path)
	if err != nil {
		return fmt.Errorf("failed to create table schema: %w", err)
	}

	x := newXMLWriter(out, true)
	ns := TableNamespace(t.SchemaIndex, t.Index)
	x.declaration(true)
	x.openTag("xs:schema", 0,
		attr{"xmlns:xs", "http://www.w3.org/2001/XMLSchema"},
		attr{"xmlns", ns},
		attr{"attributeFormDefault", "unqualified"},
		attr{"elementFormDefault", "qualified"},
		attr{"targetNamespace", ns},
	)

	x.openTag(xsElement, 1, attr{"name", "table"})
	x.openTag(xsComplexType, 2)
	x.openTag(xsSequence, 3)
	x.emptyTag(xsElement, 4, attr{"maxOccurs", "unbounded"}, attr{"minOccurs", "0"}, attr{"name", "row"}, attr{"type", "recordType"})
	x.closeTag(xsSequence, 3)
	x.closeTag(xsComplexType, 2)
	x.closeTag(xsElement, 1)

	x.openTag(xsComplexType, 1, attr{"name", "recordType"})
	x.openTag(xsSequence, 2)
	for i, col := range t.Columns {
		e.writeColumnSchema(x, t, i+1, col)
	}
	x.closeTag(xsSequence, 2)
	x.closeTag(xsComplexType, 1)

	writeLobType(x, "clobType", "xs:string", "Type to refer CLOB types. Either inline or in a separate file.")
	writeLobType(x, "blobType", "xs:hexBinary", "Type to refer BLOB types. Either inline or in a separate file.")
	writeDateTypes(x)
	writeDigestType(x)

	x.closeTag("xs:schema", 0)
	x.write("\n")
	if err := x.flush(); err != nil {
		out.Close()
		return fmt.Errorf("failed to write table schema: %w", err)
	}
	return out.Close()
}

func (e *Encoder) writeColumnSchema(x *xmlWriter, t *Table, index int, col Column) {
	name := cellPrefix + strconv.Itoa(index)
	attrs := func(extra ...attr) []attr {
		var a []attr
		if col.Nullable {
			a = append(a, attr{"minOccurs", "0"})
		}
		a = append(a, attr{"name", name})
		return append(a, extra...)
	}

	switch v := col.Type.(type) {
	case am.ComposedStructure:
		e.log.Warnf("schema of structured column %s.%s.%s is not described", t.SchemaName, t.Name, col.Name)
		e.reporter.StructuralFeature(report.Location{Schema: t.SchemaName, Table: t.Name, Column: col.Name}, "structure schema")
	case am.ComposedArray:
		x.openTag(xsElement, 3, attrs()...)
		x.openTag(xsComplexType, 4)
		x.openTag(xsSequence, 5)
		elem, ok := XSDType(v.Element)
		for i := 1; i <= e.maxArray[index]; i++ {
			aname := attr{"name", arrayPrefix + strconv.Itoa(i)}
			if ok {
				x.emptyTag(xsElement, 6, attr{"minOccurs", "0"}, aname, attr{"type", elem})
			} else {
				x.emptyTag(xsElement, 6, attr{"minOccurs", "0"}, aname)
			}
		}
		x.closeTag(xsSequence, 5)
		x.closeTag(xsComplexType, 4)
		x.closeTag(xsElement, 3)
	default:
		xsd, ok := XSDType(col.Type)
		if !ok {
			e.log.Errorf("no schema type for column c%d of %s.%s", index, t.SchemaName, t.Name)
			return
		}
		x.emptyTag(xsElement, 3, attrs(attr{"type", xsd})...)
	}
}

func writeLobType(x *xmlWriter, name, base, doc string) {
	x.openTag(xsComplexType, 1, attr{"name", name})
	x.openTag("xs:annotation", 2)
	x.inlineElement("xs:documentation", 3, EncodeText(doc))
	x.closeTag("xs:annotation", 2)
	x.openTag("xs:simpleContent", 2)
	x.openTag("xs:extension", 3, attr{"base", base})
	x.emptyTag(xsAttribute, 4, attr{"name", "file"}, attr{"type", "xs:anyURI"})
	x.emptyTag(xsAttribute, 4, attr{"name", "length"}, attr{"type", "xs:integer"})
	x.emptyTag(xsAttribute, 4, attr{"name", "digestType"}, attr{"type", digestTypeType})
	x.emptyTag(xsAttribute, 4, attr{"name", "digest"}, attr{"type", "xs:string"})
	x.closeTag("xs:extension", 3)
	x.closeTag("xs:simpleContent", 2)
	x.closeTag(xsComplexType, 1)
}

func writeRestricted(x *xmlWriter, name, base, doc string, facets ...attr) {
	x.openTag(xsSimpleType, 1, attr{"name", name})
	x.openTag("xs:annotation", 2)
	x.inlineElement("xs:documentation", 3, EncodeText(doc))
	x.closeTag("xs:annotation", 2)
	x.openTag(xsRestriction, 2, attr{"base", base})
	for _, f := range facets {
		x.emptyTag(f.name, 3, attr{"value", f.value})
	}
	x.closeTag(xsRestriction, 2)
	x.closeTag(xsSimpleType, 1)
}

func writeDateTypes(x *xmlWriter) {
	writeRestricted(x, "dateType", "xs:date",
		"dateType restricts xs:date to dates between 0001 and 9999 and is in UTC (no +/- but an optional Z)",
		attr{"xs:minInclusive", "0001-01-01Z"},
		attr{"xs:maxExclusive", "10000-01-01Z"},
		attr{"xs:pattern", `\d{4}-\d{2}-\d{2}Z?`},
	)
	writeRestricted(x, "timeType", "xs:time",
		"timeType restricts xs:time to UTC (no +/- but an optional Z)",
		attr{"xs:pattern", `\d{2}:\d{2}:\d{2}Z?`},
	)
	writeRestricted(x, "dateTimeType", "xs:dateTime",
		"dateTimeType restricts xs:dateTime to dates between 0001 and 9999 and is in UTC (no +/- after the T but an optional Z)",
		attr{"xs:minInclusive", "0001-01-01T00:00:00.000000000Z"},
		attr{"xs:maxExclusive", "10000-01-01T00:00:00.000000000Z"},
		attr{"xs:pattern", `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d*)Z?`},
	)
}

func writeDigestType(x *xmlWriter) {
	x.openTag(xsSimpleType, 1, attr{"name", digestTypeType})
	x.openTag(xsRestriction, 2, attr{"base", "xs:string"})
	x.emptyTag("xs:whiteSpace", 3, attr{"value", "collapse"})
	for _, algo := range []string{"MD5", "SHA-1", "SHA-256"} {
		x.emptyTag("xs:enumeration", 3, attr{"value", algo})
	}
	x.closeTag(xsRestriction, 2)
	x.closeTag(xsSimpleType, 1)
}
