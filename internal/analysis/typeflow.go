// # internal/analysis/typeflow.go
package analysis

import (
	"sort"
	"time"

	"mosaicmap/internal/engine/parser"
	"mosaicmap/internal/shared/observability"
)

// FunctionSite identifies a function for type-flow/error-flow reporting
// purposes: enough to locate it without owning it (cross-reference by
// {file, line, name} triple, per spec.md §3's ownership rule).
type FunctionSite struct {
	Function string
	File     string
	Line     int
}

// TypeFlow is spec.md §4.10's per-type record: every function that
// produces this type via its return, and every function that consumes it
// via a parameter.
type TypeFlow struct {
	TypeName  string
	Producers []FunctionSite
	Consumers []FunctionSite
}

// CrossPackageFlow is one directed coupling edge the type-flow tracer
// aggregates from the per-type flows: either a function in FromPackage
// returns a type defined in ToPackage, or a type defined in FromPackage is
// taken as a parameter by a function in ToPackage.
type CrossPackageFlow struct {
	FromPackage string
	ToPackage   string
	Types       []string
}

// TraceTypeFlow implements §4.10: naive signature parsing (already done by
// ParseSignatureTypes) restricted to types that are themselves defined
// somewhere in the workspace (a struct/enum/class symbol) — the same
// defined_types filter original_source/src/output/dataflow.rs applies, to
// keep the flow restricted to project-owned types rather than every
// library type mentioned in a signature.
func TraceTypeFlow(files []parser.FileRecord) (map[string]*TypeFlow, []CrossPackageFlow) {
	start := time.Now()
	defer func() { observability.AnalysisDuration.WithLabelValues("typeflow").Observe(time.Since(start).Seconds()) }()

	definedTypes, typeOwnerFile := collectDefinedTypes(files)

	flows := make(map[string]*TypeFlow)
	getFlow := func(name string) *TypeFlow {
		f, ok := flows[name]
		if !ok {
			f = &TypeFlow{TypeName: name}
			flows[name] = f
		}
		return f
	}

	connections := make(map[[2]string]map[string]bool)
	addConnection := func(from, to, typeName string) {
		if from == to {
			return
		}
		key := [2]string{from, to}
		if connections[key] == nil {
			connections[key] = make(map[string]bool)
		}
		connections[key][typeName] = true
	}

	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		sourcePkg := packageOf(rec.Path)
		for _, sym := range rec.Parsed.Symbols {
			if sym.Kind != parser.SymbolFunction {
				continue
			}
			params, ret := ParseSignatureTypes(sym.Signature)
			site := FunctionSite{Function: QualifiedName(sym.ImplType, sym.Name), File: rec.Path, Line: sym.Line}

			if ret != "" && definedTypes[ret] && !isPrimitiveType(ret) {
				getFlow(ret).Producers = append(getFlow(ret).Producers, site)
				if ownerFile, ok := typeOwnerFile[ret]; ok {
					addConnection(sourcePkg, packageOf(ownerFile), ret)
				}
			}
			for _, p := range params {
				if p == "" || !definedTypes[p] || isPrimitiveType(p) {
					continue
				}
				getFlow(p).Consumers = append(getFlow(p).Consumers, site)
				if ownerFile, ok := typeOwnerFile[p]; ok {
					addConnection(packageOf(ownerFile), sourcePkg, p)
				}
			}
		}
	}

	for _, flow := range flows {
		sortFunctionSites(flow.Producers)
		sortFunctionSites(flow.Consumers)
	}

	var crossPackage []CrossPackageFlow
	for key, types := range connections {
		if len(types) < 2 {
			continue
		}
		names := make([]string, 0, len(types))
		for t := range types {
			names = append(names, t)
		}
		sort.Strings(names)
		crossPackage = append(crossPackage, CrossPackageFlow{FromPackage: key[0], ToPackage: key[1], Types: names})
	}
	sort.Slice(crossPackage, func(i, j int) bool {
		if len(crossPackage[i].Types) != len(crossPackage[j].Types) {
			return len(crossPackage[i].Types) > len(crossPackage[j].Types)
		}
		if crossPackage[i].FromPackage != crossPackage[j].FromPackage {
			return crossPackage[i].FromPackage < crossPackage[j].FromPackage
		}
		return crossPackage[i].ToPackage < crossPackage[j].ToPackage
	})

	return flows, crossPackage
}

func sortFunctionSites(sites []FunctionSite) {
	sort.Slice(sites, func(i, j int) bool {
		if sites[i].File != sites[j].File {
			return sites[i].File < sites[j].File
		}
		return sites[i].Line < sites[j].Line
	})
}

// collectDefinedTypes indexes every struct/enum (Rust) or class (Python)
// symbol name to the file that defines it, the type-flow tracer's proxy
// for "this identifier names a project type" in the absence of real type
// resolution.
func collectDefinedTypes(files []parser.FileRecord) (map[string]bool, map[string]string) {
	defined := make(map[string]bool)
	owner := make(map[string]string)
	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		for _, sym := range rec.Parsed.Symbols {
			switch sym.Kind {
			case parser.SymbolStruct, parser.SymbolEnum, parser.SymbolClass:
				defined[sym.Name] = true
				if _, ok := owner[sym.Name]; !ok {
					owner[sym.Name] = rec.Path
				}
			}
		}
	}
	return defined, owner
}
