// # internal/resolver/resolver.go
package resolver

import (
	"path"
	"sort"
	"time"

	"mosaicmap/internal/engine/parser"
	"mosaicmap/internal/shared/observability"
)

// Owner is one definition site for a type-shaped identifier.
type Owner struct {
	Package string
	File    string
	Symbol  string
	Line    int
	Kind    parser.SymbolKind
}

// Reference is one occurrence of a type-shaped identifier resolved against
// the global SymbolTable.
type Reference struct {
	Identifier string
	File       string
	Line       int
	Owners     []Owner
	Ambiguous  bool
}

// Result is Phase 2's reference-resolution product: the global symbol
// table, the full reference list, and the file-level dependents inversion.
type Result struct {
	Table      map[string][]Owner
	References []Reference
	Dependents map[string][]string
}

// isTypeShaped is the glossary's PascalCase definition verbatim: an
// identifier whose first character is an uppercase ASCII letter. No
// further narrowing is applied, matching the identifier-occurrence index
// the Extractor already built under the same rule.
func isTypeShaped(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return c >= 'A' && c <= 'Z'
}

// packageOf is the resolver's sole notion of "package": the directory
// containing the file. spec.md names WorkspaceInfo/project detection as an
// external collaborator, so this resolver performs no import-path
// resolution of its own — directory grouping is the best-effort proxy.
func packageOf(filePath string) string {
	dir := path.Dir(filePath)
	if dir == "." {
		return ""
	}
	return dir
}

// Resolve builds the global SymbolTable from every parsed file's symbols,
// then walks each file's identifier-occurrence index to produce the
// reference list and the dependents inversion. No file I/O is performed.
func Resolve(files []parser.FileRecord) *Result {
	start := time.Now()
	defer func() { observability.ResolveDuration.Observe(time.Since(start).Seconds()) }()

	table := make(map[string][]Owner)
	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		pkg := packageOf(rec.Path)
		for _, sym := range rec.Parsed.Symbols {
			if !isTypeShaped(sym.Name) {
				continue
			}
			table[sym.Name] = append(table[sym.Name], Owner{
				Package: pkg, File: rec.Path, Symbol: sym.Name, Line: sym.Line, Kind: sym.Kind,
			})
		}
	}
	for name := range table {
		sort.Slice(table[name], func(i, j int) bool {
			if table[name][i].File != table[name][j].File {
				return table[name][i].File < table[name][j].File
			}
			return table[name][i].Line < table[name][j].Line
		})
	}

	var refs []Reference
	dependentSets := make(map[string]map[string]bool)

	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		for identifier, lines := range rec.Parsed.IdentifierOccurrences {
			owners, ok := table[identifier]
			if !ok {
				continue
			}
			// A file that owns this identifier is never treated as a
			// referrer of its own symbol, defining line or otherwise.
			if ownedByFile(owners, rec.Path) {
				continue
			}
			for _, line := range lines {
				refs = append(refs, Reference{
					Identifier: identifier,
					File:       rec.Path,
					Line:       line,
					Owners:     owners,
					Ambiguous:  len(owners) > 1,
				})
				for _, owner := range owners {
					if dependentSets[owner.File] == nil {
						dependentSets[owner.File] = make(map[string]bool)
					}
					dependentSets[owner.File][rec.Path] = true
				}
			}
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].File != refs[j].File {
			return refs[i].File < refs[j].File
		}
		if refs[i].Line != refs[j].Line {
			return refs[i].Line < refs[j].Line
		}
		return refs[i].Identifier < refs[j].Identifier
	})

	dependents := make(map[string][]string, len(dependentSets))
	for owner, set := range dependentSets {
		list := make([]string, 0, len(set))
		for dep := range set {
			list = append(list, dep)
		}
		sort.Strings(list)
		dependents[owner] = list
	}

	return &Result{Table: table, References: refs, Dependents: dependents}
}

func ownedByFile(owners []Owner, file string) bool {
	for _, o := range owners {
		if o.File == file {
			return true
		}
	}
	return false
}

