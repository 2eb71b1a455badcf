// # internal/analysis/qualify.go
package analysis

import "mosaicmap/internal/engine/parser"

// QualifiedName mirrors original_source's FunctionId::qualified_name: a
// function's impl/class owner, if any, prefixes its bare name with "::".
// Every derived analyzer that walks the call graph resolves by this key,
// accepting the name-based conflation spec.md §1 and §9 call out as a
// non-goal rather than attempting real type resolution.
func QualifiedName(implType, name string) string {
	if implType == "" {
		return name
	}
	return implType + "::" + name
}

// QualifiedTarget is CallEdge's counterpart: a best-effort receiver type
// qualifies the bare callee name when the extractor could infer one.
func QualifiedTarget(edge parser.CallEdge) string {
	return QualifiedName(edge.ReceiverType, edge.Target)
}
