package typeimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
)

var (
	arraySuffix = regexp.MustCompile(`^(.*\S)\s+ARRAY(?:\s*\[\s*\d+\s*\])?$`)
	standardRe  = regexp.MustCompile(`^([A-Z][A-Z ]*?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?\s*((?:WITH|WITHOUT)\s+(?:LOCAL\s+)?TIME\s+ZONE)?$`)
)

type keyword struct {
	maxParams int
	zoned     bool
	build     func(p []int, withZone bool) am.Type
}

func param(p []int, i int) int {
	if i < len(p) {
		return p[i]
	}
	return 0
}

func lengthKeyword(build func(n int) am.Type) keyword {
	return keyword{maxParams: 1, build: func(p []int, _ bool) am.Type { return build(param(p, 0)) }}
}

func exactKeyword(name string) keyword {
	return keyword{maxParams: 2, build: func(p []int, _ bool) am.Type { return exactType(name, param(p, 0), param(p, 1)) }}
}

func plainKeyword(t am.Type) keyword {
	return keyword{build: func([]int, bool) am.Type { return t }}
}

var (
	charKw    = lengthKeyword(func(n int) am.Type { return charType("CHARACTER", n) })
	ncharKw   = lengthKeyword(func(n int) am.Type { return charType("NATIONAL CHARACTER", n) })
	varcharKw = lengthKeyword(func(n int) am.Type { return varcharType("CHARACTER VARYING", n) })
	nvarKw    = lengthKeyword(func(n int) am.Type { return varcharType("NATIONAL CHARACTER VARYING", n) })
	clobKw    = lengthKeyword(func(n int) am.Type { return clobType("CHARACTER LARGE OBJECT", n) })
	nclobKw   = lengthKeyword(func(n int) am.Type { return clobType("NATIONAL CHARACTER LARGE OBJECT", n) })
	varbinKw  = lengthKeyword(varbinaryType)
	blobKw    = lengthKeyword(blobType)
	intKw     = plainKeyword(integerType())
	doubleKw  = plainKeyword(doubleType())
)

// standardKeywords covers both naming conventions; the spellings do not conflict.
var standardKeywords = map[string]keyword{
	"CHARACTER":                       charKw,
	"CHAR":                            charKw,
	"NATIONAL CHARACTER":              ncharKw,
	"NATIONAL CHAR":                   ncharKw,
	"NCHAR":                           ncharKw,
	"CHARACTER VARYING":               varcharKw,
	"CHAR VARYING":                    varcharKw,
	"VARCHAR":                         varcharKw,
	"NATIONAL CHARACTER VARYING":      nvarKw,
	"NATIONAL CHAR VARYING":           nvarKw,
	"NCHAR VARYING":                   nvarKw,
	"NVARCHAR":                        nvarKw,
	"CHARACTER LARGE OBJECT":          clobKw,
	"CHAR LARGE OBJECT":               clobKw,
	"CLOB":                            clobKw,
	"NATIONAL CHARACTER LARGE OBJECT": nclobKw,
	"NCHAR LARGE OBJECT":              nclobKw,
	"NCLOB":                           nclobKw,
	"BINARY":                          lengthKeyword(binaryType),
	"BINARY VARYING":                  varbinKw,
	"VARBINARY":                       varbinKw,
	"BIT":                             lengthKeyword(bitStringType),
	"BIT VARYING":                     varbinKw,
	"BINARY LARGE OBJECT":             blobKw,
	"BLOB":                            blobKw,
	"NUMERIC":                         exactKeyword("NUMERIC"),
	"DECIMAL":                         exactKeyword("DECIMAL"),
	"DEC":                             exactKeyword("DECIMAL"),
	"SMALLINT":                        plainKeyword(smallIntType()),
	"INTEGER":                         intKw,
	"INT":                             intKw,
	"BIGINT":                          plainKeyword(bigIntType()),
	"FLOAT":                           {maxParams: 1, build: func(p []int, _ bool) am.Type { return floatType(param(p, 0)) }},
	"REAL":                            plainKeyword(realType()),
	"DOUBLE PRECISION":                doubleKw,
	"DOUBLE":                          doubleKw,
	"BOOLEAN":                         plainKeyword(booleanType()),
	"DATE":                            plainKeyword(dateType()),
	"TIME":                            {maxParams: 1, zoned: true, build: func(_ []int, z bool) am.Type { return timeType(z) }},
	"TIMESTAMP":                       {maxParams: 1, zoned: true, build: func(_ []int, z bool) am.Type { return timestampType(z) }},
}

// ParseSQL2008 parses a name written in the SQL:2008 convention.
func (imp *Importer) ParseSQL2008(name, original string) (am.Type, error) {
	return imp.parseConvention(ConventionSQL2008, name, original)
}

// ParseSQL99 parses a name written in the SQL:1999 convention.
func (imp *Importer) ParseSQL99(name, original string) (am.Type, error) {
	return imp.parseConvention(ConventionSQL99, name, original)
}

// ParseStandardName parses an archived standard name in either convention.
func (imp *Importer) ParseStandardName(name, original string) (am.Type, error) {
	return imp.parseConvention(ConventionSQL2008, name, original)
}

func (imp *Importer) parseConvention(convention, name, original string) (am.Type, error) {
	t, err := imp.parse(name)
	if err != nil {
		return nil, &TypeResolutionError{Convention: convention, Name: name, Original: original, Cause: err}
	}
	if original == "" {
		original = name
	}
	return am.WithOriginalName(t, original), nil
}

func (imp *Importer) parse(name string) (am.Type, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrMalformedStandardType
	}
	upper := strings.ToUpper(trimmed)

	if m := arraySuffix.FindStringSubmatch(upper); m != nil {
		elem, err := imp.parse(m[1])
		if err != nil {
			return nil, err
		}
		return arrayType(elem), nil
	}

	m := standardRe.FindStringSubmatch(upper)
	if m == nil {
		if s, ok := imp.structureNamed(trimmed); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrMalformedStandardType, name)
	}

	kwName := strings.Join(strings.Fields(m[1]), " ")
	kw, ok := standardKeywords[kwName]
	if !ok {
		if s, ok := imp.structureNamed(trimmed); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownStandardType, kwName)
	}

	var params []int
	for _, g := range m[2:4] {
		if g == "" {
			continue
		}
		n, err := strconv.Atoi(g)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %v", ErrMalformedStandardType, g, err)
		}
		params = append(params, n)
	}
	if len(params) > kw.maxParams {
		return nil, fmt.Errorf("%w: %s takes at most %d parameters", ErrMalformedStandardType, kwName, kw.maxParams)
	}

	zone := m[4]
	if zone != "" && !kw.zoned {
		return nil, fmt.Errorf("%w: %s cannot carry a time zone", ErrMalformedStandardType, kwName)
	}
	withZone := strings.HasPrefix(zone, "WITH ")
	return kw.build(params, withZone), nil
}

func (imp *Importer) structureNamed(name string) (am.Type, bool) {
	def, ok := imp.registry.LookupAny(name)
	if !ok {
		return nil, false
	}
	return structureType(def), true
}
