package typeimport

import (
	am "github.com/redbco/redb-archive/pkg/archivemodel"
)

// Canonical precisions of the integer classes.
const (
	SmallIntPrecision = 5
	IntegerPrecision  = 10
	BigIntPrecision   = 19

	RealPrecision   = 24
	DoublePrecision = 53
)

// UnsupportedStorageName is the standard name archived for types that have
// no portable classification.
const UnsupportedStorageName = "CHARACTER VARYING(2147483647)"

func sameNames(name string) am.Names {
	return am.Names{SQL99: name, SQL2008: name}
}

func lengthName(keyword string, n int) string {
	if n > 0 {
		return am.StandardName(keyword, n)
	}
	return keyword
}

func exactName(keyword string, precision, scale int) string {
	switch {
	case scale > 0:
		return am.StandardName(keyword, precision, scale)
	case precision > 0:
		return am.StandardName(keyword, precision)
	}
	return keyword
}

func smallIntType() am.Type {
	return am.SimpleNumericExact{Names: sameNames("SMALLINT"), Precision: SmallIntPrecision}
}

func integerType() am.Type {
	return am.SimpleNumericExact{Names: sameNames("INTEGER"), Precision: IntegerPrecision}
}

// BIGINT only exists from SQL:2003 on.
func bigIntType() am.Type {
	return am.SimpleNumericExact{
		Names:     am.Names{SQL99: am.StandardName("NUMERIC", BigIntPrecision), SQL2008: "BIGINT"},
		Precision: BigIntPrecision,
	}
}

func exactType(keyword string, precision, scale int) am.Type {
	if precision < 0 {
		precision = 0
	}
	if scale < 0 {
		scale = 0
	}
	return am.SimpleNumericExact{
		Names:     sameNames(exactName(keyword, precision, scale)),
		Precision: precision,
		Scale:     scale,
	}
}

func realType() am.Type {
	return am.SimpleNumericApproximate{Names: sameNames("REAL"), Precision: RealPrecision}
}

func doubleType() am.Type {
	return am.SimpleNumericApproximate{Names: sameNames("DOUBLE PRECISION"), Precision: DoublePrecision}
}

func floatType(precision int) am.Type {
	if precision <= 0 {
		return am.SimpleNumericApproximate{Names: sameNames("FLOAT"), Precision: DoublePrecision}
	}
	return am.SimpleNumericApproximate{Names: sameNames(am.StandardName("FLOAT", precision)), Precision: precision}
}

func charType(keyword string, n int) am.Type {
	n = max(n, 0)
	return am.SimpleString{Names: sameNames(lengthName(keyword, n)), Length: n}
}

func varcharType(keyword string, n int) am.Type {
	n = max(n, 0)
	return am.SimpleString{Names: sameNames(lengthName(keyword, n)), Length: n}
}

func clobType(keyword string, n int) am.Type {
	n = max(n, 0)
	return am.SimpleString{Names: sameNames(lengthName(keyword, n)), Length: n, Large: true}
}

// SQL:1999 has no BINARY; bit strings stand in for it.
func binaryType(n int) am.Type {
	n = max(n, 0)
	return am.SimpleBinary{
		Names:  am.Names{SQL99: lengthName("BIT", n), SQL2008: lengthName("BINARY", n)},
		Length: n,
	}
}

func varbinaryType(n int) am.Type {
	n = max(n, 0)
	return am.SimpleBinary{
		Names:  am.Names{SQL99: lengthName("BIT VARYING", n), SQL2008: lengthName("BINARY VARYING", n)},
		Length: n,
	}
}

func bitStringType(n int) am.Type {
	n = max(n, 0)
	return am.SimpleBinary{Names: sameNames(lengthName("BIT", n)), Length: n}
}

func blobType(n int) am.Type {
	n = max(n, 0)
	return am.SimpleBinary{Names: sameNames(lengthName("BINARY LARGE OBJECT", n)), Length: n, Large: true}
}

func booleanType() am.Type {
	return am.SimpleBoolean{Names: sameNames("BOOLEAN")}
}

func dateType() am.Type {
	return am.SimpleDateTime{Names: sameNames("DATE")}
}

func timeType(withZone bool) am.Type {
	if withZone {
		return am.SimpleDateTime{Names: sameNames("TIME WITH TIME ZONE"), TimePart: true, TimeZone: true}
	}
	return am.SimpleDateTime{Names: sameNames("TIME"), TimePart: true}
}

func timestampType(withZone bool) am.Type {
	if withZone {
		return am.SimpleDateTime{Names: sameNames("TIMESTAMP WITH TIME ZONE"), TimePart: true, TimeZone: true}
	}
	return am.SimpleDateTime{Names: sameNames("TIMESTAMP"), TimePart: true}
}

func arrayType(elem am.Type) am.Type {
	en := elem.TypeNames()
	names := am.Names{}
	if en.SQL2008 != "" {
		names.SQL2008 = en.SQL2008 + " ARRAY"
	}
	if en.SQL99 != "" {
		names.SQL99 = en.SQL99 + " ARRAY"
	}
	return am.ComposedArray{Names: names, Element: elem}
}

func unsupportedType(d Descriptor) am.Type {
	return am.Unsupported{
		Names: am.Names{Original: d.TypeName, SQL99: UnsupportedStorageName, SQL2008: UnsupportedStorageName},
		Code:  d.Code,
		Size:  d.Size,
		Scale: d.Scale,
		Radix: d.Radix,
	}
}
