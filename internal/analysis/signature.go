// # internal/analysis/signature.go
package analysis

import "strings"

// primitiveTypes are excluded from the shared-type bonus (§4.9) and the
// type-flow tracer's produced/consumed indexing (§4.10): integer,
// floating, boolean, string, and byte-array variants across both host
// languages, plus the handful of stdlib container/wrapper names the
// original implementation also treats as too common to be meaningful
// affinity signal (original_source/src/output/clusters.rs: is_common_type).
var primitiveTypes = map[string]bool{
	"bool": true, "char": true, "str": true, "&str": true, "String": true, "&String": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true, "()": true, "Self": true, "&Self": true, "&mut Self": true,
	"Option": true, "Result": true, "Vec": true, "Box": true, "Arc": true, "Rc": true,
	"HashMap": true, "HashSet": true, "BTreeMap": true, "BTreeSet": true,
	// Python
	"int": true, "float": true, "bool_": true, "bytes": true, "bytearray": true,
	"list": true, "dict": true, "set": true, "tuple": true, "object": true, "None": true,
	"Any": true, "Optional": true, "Union": true, "List": true, "Dict": true, "Set": true, "Tuple": true,
}

func isPrimitiveType(name string) bool {
	base := baseTypeName(name)
	return base == "" || primitiveTypes[base]
}

// baseTypeName strips a single layer of reference/mutability/lifetime
// markers and generic parameters, e.g. "&mut Vec<Widget>" -> "Vec",
// "&'static str" -> "str". This is the naive "longest identifier token"
// approach spec.md §4.10 specifies; it performs no real type resolution.
func baseTypeName(typeStr string) string {
	t := strings.TrimSpace(typeStr)
	t = strings.TrimPrefix(t, "&")
	t = strings.TrimPrefix(t, "mut ")
	for strings.HasPrefix(t, "'") {
		if sp := strings.IndexByte(t, ' '); sp >= 0 {
			t = strings.TrimSpace(t[sp+1:])
		} else {
			t = ""
			break
		}
	}
	t = strings.TrimPrefix(t, "mut ")
	if idx := strings.IndexByte(t, '<'); idx >= 0 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}

// ParseSignatureTypes extracts a naive parameter-type list and return-type
// name from a signature's source text: the text after the last "->" and
// the type part of each "name: Type" parameter, each reduced by
// baseTypeName (so "Option<Gadget>" yields "Option"). Grounded on original_source's
// parse_signature_types, which this mirrors field for field; it works
// unchanged for Python signatures since this pipeline's Signature text
// uses the same "name: Type" shape for both languages.
func ParseSignatureTypes(signature string) (params []string, ret string) {
	if arrow := strings.LastIndex(signature, "->"); arrow >= 0 {
		r := strings.TrimSpace(signature[arrow+2:])
		if r != "" && r != "()" {
			ret = baseTypeName(r)
		}
	}

	open := strings.IndexByte(signature, '(')
	shut := strings.LastIndexByte(signature, ')')
	if open < 0 || shut <= open {
		return params, ret
	}
	for _, part := range strings.Split(signature[open+1:shut], ",") {
		p := strings.TrimSpace(part)
		if p == "" || p == "self" || p == "&self" || p == "&mut self" || p == "cls" {
			continue
		}
		colon := strings.IndexByte(p, ':')
		if colon < 0 {
			continue
		}
		typePart := strings.TrimSpace(p[colon+1:])
		if typePart == "" {
			continue
		}
		params = append(params, baseTypeName(typePart))
	}
	return params, ret
}
