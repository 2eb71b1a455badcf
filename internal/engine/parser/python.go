package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// dangerousPythonCalls is the syntactic table consulted by Safety extraction.
var dangerousPythonCalls = map[string]bool{
	"eval":                     true,
	"exec":                     true,
	"subprocess.call":          true,
	"subprocess.run":           true,
	"subprocess.Popen":         true,
	"subprocess.check_call":    true,
	"subprocess.check_output":  true,
	"pickle.load":              true,
	"pickle.loads":             true,
	"pickle.dump":              true,
	"pickle.dumps":             true,
	"ctypes.CDLL":              true,
	"ctypes.cdll":              true,
}

// PythonExtractor walks a Python (or .pyi) syntax tree and produces a
// ParsedFile. Module/class/function structure, imports, raise/assert sites
// and dangerous calls are all extracted in a single pre-order pass.
type PythonExtractor struct{}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*ParsedFile, error) {
	file := &ParsedFile{
		Errors: ErrorInfo{PropagationLines: make(map[string][]int)},
	}
	ctx := &ExtractionContext{Source: source, File: file}

	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement":          e.extractImport,
		"import_from_statement":     e.extractFromImport,
		"function_definition":       e.extractFunction,
		"async_function_definition": e.extractFunction,
		"class_definition":          e.extractClass,
		"call":                      e.extractCall,
		"raise_statement":           e.extractRaise,
		"assert_statement":          e.extractAssert,
	})
	engine.Walk(ctx, root)

	return file, nil
}

func (e *PythonExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name", "identifier":
			mod := ctx.Text(child)
			ctx.File.Imports = append(ctx.File.Imports, Import{
				Source: mod, Group: classifyPythonImport(mod), Line: ctx.Line(child),
			})
		case "aliased_import":
			var mod, alias string
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "dotted_name" || sub.Kind() == "identifier" {
					if mod == "" {
						mod = ctx.Text(sub)
					} else {
						alias = ctx.Text(sub)
					}
				}
			}
			ctx.File.Imports = append(ctx.File.Imports, Import{
				Source: mod, Alias: alias, Group: classifyPythonImport(mod), Line: ctx.Line(child),
			})
		}
	}
	return true
}

func (e *PythonExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	var module string
	var items []string
	relative := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "relative_import":
			relative = true
			module = strings.TrimLeft(ctx.Text(child), ".")
		case "dotted_name", "identifier":
			if !relative && module == "" {
				module = ctx.Text(child)
			}
		case "import_list", "aliased_import", "wildcard_import":
			collectPythonNames(ctx, child, &items)
		}
	}

	group := ImportInternal
	if relative {
		group = ImportInternal
	} else {
		group = classifyPythonImport(module)
	}

	ctx.File.Imports = append(ctx.File.Imports, Import{
		Source: module, Items: items, Group: group, Line: ctx.Line(node),
	})
	return true
}

func collectPythonNames(ctx *ExtractionContext, node *sitter.Node, items *[]string) {
	switch node.Kind() {
	case "identifier", "dotted_name":
		*items = append(*items, ctx.Text(node))
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		collectPythonNames(ctx, node.Child(i), items)
	}
}

var pythonStdlibPrefixes = map[string]bool{
	"os": true, "sys": true, "re": true, "json": true, "typing": true,
	"collections": true, "itertools": true, "functools": true, "abc": true,
	"pathlib": true, "asyncio": true, "dataclasses": true, "subprocess": true,
	"logging": true, "unittest": true, "enum": true, "io": true,
}

func classifyPythonImport(module string) ImportGroup {
	if module == "" {
		return ImportInternal
	}
	root := strings.SplitN(module, ".", 2)[0]
	if pythonStdlibPrefixes[root] {
		return ImportStd
	}
	return ImportExternal
}

func (e *PythonExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.ChildText(node, "identifier")
	if name == "" {
		return false
	}

	isAsync := node.Kind() == "async_function_definition" || hasDirectChildKind(node, "async")
	params := node.ChildByFieldName("parameters")
	body := node.ChildByFieldName("body")

	implType := pythonEnclosingClass(ctx, node)
	doc := pythonLeadingDocstring(ctx, body)
	visibility := VisibilityPublic
	if strings.HasPrefix(name, "_") {
		visibility = VisibilityPrivate
	}

	sig := "def " + name
	if params != nil {
		sig += ctx.NormalizedText(params)
	} else {
		sig += "()"
	}
	if retType := node.ChildByFieldName("return_type"); retType != nil {
		sig += " -> " + ctx.NormalizedText(retType)
	}
	if isAsync {
		sig = "async " + sig
	}

	summary := pythonBodySummary(ctx, body, name)
	ctx.File.TotalComplexity += summary.Cyclomatic

	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:       name,
		Kind:       SymbolFunction,
		Line:       ctx.Line(node),
		Visibility: visibility,
		Doc:        doc,
		Signature:  sig,
		IsAsync:    isAsync,
		IsTest:     strings.HasPrefix(name, "test_"),
		ImplType:   implType,
		Body:       summary,
	})

	if isAsync {
		ctx.File.Safety.Sites = append(ctx.File.Safety.Sites, SafetySite{
			Line: ctx.Line(node), Kind: "async_fn", Function: name,
		})
	}

	caller := CallInfo{CallerName: name, ImplType: implType, Line: ctx.Line(node)}
	if body != nil {
		collectPythonCalls(ctx, body, name, &caller)
	}
	ctx.File.Calls = append(ctx.File.Calls, caller)

	if body != nil {
		ctx.WalkIdentifiers(body, "identifier")
	}
	return false
}

func pythonEnclosingClass(ctx *ExtractionContext, node *sitter.Node) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "class_definition" {
			return ctx.ChildText(p, "identifier")
		}
	}
	return ""
}

func pythonLeadingDocstring(ctx *ExtractionContext, body *sitter.Node) string {
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Kind() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str.Kind() != "string" {
		return ""
	}
	text := ctx.Text(str)
	text = strings.Trim(text, "\"' \t")
	text = strings.TrimPrefix(text, "\"\"")
	text = strings.TrimSuffix(text, "\"\"")
	return strings.TrimSpace(text)
}

func pythonBodySummary(ctx *ExtractionContext, body *sitter.Node, funcName string) *BodySummary {
	summary := &BodySummary{Cyclomatic: 1}
	if body == nil {
		return summary
	}
	lines := int(body.EndPosition().Row-body.StartPosition().Row) + 1
	if lines < 1 {
		lines = 1
	}
	summary.Lines = lines

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Kind() {
		case "if_statement", "elif_clause", "for_statement", "while_statement", "except_clause":
			summary.Cyclomatic++
		case "match_statement":
			if arms := pythonCaseClauseCount(n); arms > 0 {
				summary.Cyclomatic += arms - 1
			}
		case "boolean_operator":
			summary.Cyclomatic++
		case "await":
			summary.HasAwait = true
		case "raise_statement":
			summary.HasFalliblePropagation = true
		case "call":
			if isPanicShapedPythonCall(ctx, n) {
				summary.HasPanic = true
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	_ = funcName
	return summary
}

// pythonCaseClauseCount counts the case clauses belonging directly to a
// match statement's block, not clauses of any match nested inside one of
// their bodies.
func pythonCaseClauseCount(matchStmt *sitter.Node) int {
	block := matchStmt.ChildByFieldName("body")
	if block == nil {
		return 0
	}
	cases := 0
	for i := uint(0); i < block.ChildCount(); i++ {
		if block.Child(i).Kind() == "case_clause" {
			cases++
		}
	}
	return cases
}

func isPanicShapedPythonCall(ctx *ExtractionContext, call *sitter.Node) bool {
	name := pythonCallName(ctx, call)
	return name == "exit" || name == "sys.exit" || name == "os._exit"
}

func collectPythonCalls(ctx *ExtractionContext, node *sitter.Node, funcName string, out *CallInfo) {
	var inAwait bool
	var walk func(n *sitter.Node, await bool)
	walk = func(n *sitter.Node, await bool) {
		if n.Kind() == "await" {
			await = true
		}
		if n.Kind() == "call" {
			name := pythonCallName(ctx, n)
			if name != "" {
				target := name
				if idx := strings.LastIndex(name, "."); idx >= 0 {
					target = name[idx+1:]
				}
				out.Callees = append(out.Callees, CallEdge{
					Target:  target,
					IsAsync: await,
					Line:    ctx.Line(n),
				})
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i), await)
		}
	}
	walk(node, inAwait)
}

func pythonCallName(ctx *ExtractionContext, call *sitter.Node) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier", "attribute":
		return ctx.Text(fn)
	default:
		return ""
	}
}

func (e *PythonExtractor) extractClass(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.ChildText(node, "identifier")
	if name == "" {
		return false
	}

	visibility := VisibilityPublic
	if strings.HasPrefix(name, "_") {
		visibility = VisibilityPrivate
	}

	var bases []string
	isProtocol, isAbc := false, false
	if superclasses := node.ChildByFieldName("superclasses"); superclasses != nil {
		for i := uint(0); i < superclasses.ChildCount(); i++ {
			c := superclasses.Child(i)
			if c.Kind() == "identifier" || c.Kind() == "attribute" {
				base := ctx.Text(c)
				bases = append(bases, base)
				if base == "Protocol" || strings.HasSuffix(base, ".Protocol") {
					isProtocol = true
				}
				if base == "ABC" || strings.HasSuffix(base, ".ABC") {
					isAbc = true
				}
			}
		}
	}

	sig := "class " + name
	if len(bases) > 0 {
		sig += "(" + strings.Join(bases, ", ") + ")"
	}

	var methods []string
	if body := node.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			stmt := body.Child(i)
			if stmt.Kind() == "function_definition" || stmt.Kind() == "async_function_definition" {
				if mname := ctx.ChildText(stmt, "identifier"); mname != "" {
					methods = append(methods, mname)
				}
			}
		}
	}

	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:       name,
		Kind:       SymbolClass,
		Line:       ctx.Line(node),
		Visibility: visibility,
		Signature:  sig,
		Bases:      bases,
		IsProtocol: isProtocol,
		IsAbc:      isAbc,
		Methods:    methods,
	})
	ctx.RecordIdentifierOccurrence(name, ctx.Line(node))
	return false
}

func (e *PythonExtractor) extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	name := pythonCallName(ctx, node)
	if name == "" {
		return false
	}
	if dangerousPythonCalls[name] {
		fn := nearestPythonFunction(ctx, node)
		ctx.File.Safety.Sites = append(ctx.File.Safety.Sites, SafetySite{
			Line: ctx.Line(node), Kind: "dangerous_call", Function: fn, Detail: name,
		})
	}
	return false
}

func (e *PythonExtractor) extractRaise(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := nearestPythonFunction(ctx, node)
	if fn != "" {
		ctx.File.Errors.OriginatingFunctions = appendUnique(ctx.File.Errors.OriginatingFunctions, fn)
		ctx.File.Errors.PropagationLines[fn] = append(ctx.File.Errors.PropagationLines[fn], ctx.Line(node))
	}
	ctx.File.Safety.Sites = append(ctx.File.Safety.Sites, SafetySite{
		Line: ctx.Line(node), Kind: "explicit_panic", Function: fn, Detail: ctx.NormalizedText(node),
	})
	return false
}

func (e *PythonExtractor) extractAssert(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := nearestPythonFunction(ctx, node)
	ctx.File.Safety.Sites = append(ctx.File.Safety.Sites, SafetySite{
		Line: ctx.Line(node), Kind: "explicit_panic", Function: fn, Detail: "assert",
	})
	return false
}

func nearestPythonFunction(ctx *ExtractionContext, node *sitter.Node) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "function_definition" || p.Kind() == "async_function_definition" {
			return ctx.ChildText(p, "identifier")
		}
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
