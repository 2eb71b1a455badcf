package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// panicMacros and panicMethods are the syntactic panic-shaped call targets
// consulted by Safety extraction and the body-summary panic flag.
var panicMacros = map[string]bool{
	"panic": true, "unreachable": true, "todo": true, "unimplemented": true, "assert": true,
	"assert_eq": true, "assert_ne": true, "debug_assert": true,
}

var panicMethods = map[string]bool{
	"unwrap": true, "expect": true,
}

// RustExtractor walks a Rust syntax tree and produces a ParsedFile.
// Traversal is a single pre-order pass dispatched by node kind through
// ExtractorEngine, matching the handler-map pattern the parser pool and
// engine were adapted from.
type RustExtractor struct{}

func (e *RustExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*ParsedFile, error) {
	file := &ParsedFile{
		Errors: ErrorInfo{PropagationLines: make(map[string][]int)},
	}
	ctx := &ExtractionContext{Source: source, File: file}

	engine := NewExtractorEngine(map[string]NodeHandler{
		"function_item":    e.extractFunction,
		"struct_item":      e.extractStruct,
		"enum_item":        e.extractEnum,
		"trait_item":       e.extractTrait,
		"impl_item":        e.extractImpl,
		"const_item":       e.extractConst,
		"static_item":      e.extractStatic,
		"type_item":        e.extractTypeAlias,
		"mod_item":         e.extractMod,
		"use_declaration":  e.extractUse,
		"macro_invocation": e.extractMacroInvocation,
		"unsafe_block":     e.extractUnsafeBlock,
		"index_expression": e.extractIndexExpression,
		"call_expression":  e.extractPanicMethodCall,
		"try_expression":   e.extractTryExpression,
	})
	engine.Walk(ctx, root)

	return file, nil
}

// rustVisibilityText collapses pub/pub(crate)/pub(super)/pub(in ...) into the
// three-way scheme this pipeline's data model uses: Public maps to
// VisibilityPublic, every restricted pub(...) form to VisibilityCrate.
func rustVisibilityText(ctx *ExtractionContext, node *sitter.Node) Visibility {
	if node.ChildCount() == 0 {
		return VisibilityPrivate
	}
	first := node.Child(0)
	if first == nil || first.Kind() != "visibility_modifier" {
		return VisibilityPrivate
	}
	text := ctx.Text(first)
	if text == "pub" {
		return VisibilityPublic
	}
	return VisibilityCrate
}

func hasDirectChildKind(node *sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.Child(i).Kind() == kind {
			return true
		}
	}
	return false
}

func (e *RustExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil {
		return false
	}
	fnName := ctx.Text(name)

	isAsync := hasDirectChildKind(node, "async")
	isUnsafe := hasDirectChildKind(node, "unsafe")
	implType := rustEnclosingImplType(ctx, node)

	params := node.ChildByFieldName("parameters")
	body := node.ChildByFieldName("body")
	retType := node.ChildByFieldName("return_type")

	sig := rustVisibilityText(ctx, node).prefix() + "fn " + fnName
	if generics := node.ChildByFieldName("type_parameters"); generics != nil {
		sig += ctx.NormalizedText(generics)
	}
	if params != nil {
		sig += ctx.NormalizedText(params)
	}
	if retType != nil {
		sig += " -> " + ctx.NormalizedText(retType)
	}
	if isAsync {
		sig = "async " + sig
	}
	if isUnsafe {
		sig = "unsafe " + sig
	}

	fallible := rustReturnsFallible(ctx, retType)
	summary := rustBodySummary(ctx, body)
	ctx.File.TotalComplexity += summary.Cyclomatic

	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:       fnName,
		Kind:       SymbolFunction,
		Line:       ctx.Line(node),
		Visibility: rustVisibilityText(ctx, node),
		Doc:        rustLeadingDoc(ctx, node),
		Signature:  sig,
		IsAsync:    isAsync,
		IsUnsafe:   isUnsafe,
		IsTest:     rustHasTestAttribute(ctx, node) || rustInTestModule(ctx, node),
		ImplType:   implType,
		Body:       summary,
	})

	if fallible {
		ctx.File.Errors.OriginatingFunctions = appendUnique(ctx.File.Errors.OriginatingFunctions, fnName)
	}
	if isAsync {
		ctx.File.Safety.Sites = append(ctx.File.Safety.Sites, SafetySite{
			Line: ctx.Line(node), Kind: "async_fn", Function: fnName,
		})
	}

	caller := CallInfo{CallerName: fnName, ImplType: implType, Line: ctx.Line(node)}
	if body != nil {
		rustCollectCalls(ctx, body, &caller)
		ctx.WalkIdentifiers(body, "identifier", "type_identifier")
	}
	ctx.File.Calls = append(ctx.File.Calls, caller)
	return false
}

func (v Visibility) prefix() string {
	switch v {
	case VisibilityPublic:
		return "pub "
	case VisibilityCrate:
		return "pub(crate) "
	default:
		return ""
	}
}

func rustEnclosingImplType(ctx *ExtractionContext, node *sitter.Node) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "impl_item" {
			if t := p.ChildByFieldName("type"); t != nil {
				return ctx.Text(t)
			}
		}
		if p.Kind() == "trait_item" {
			return ctx.ChildText(p, "type_identifier")
		}
	}
	return ""
}

func rustLeadingDoc(ctx *ExtractionContext, node *sitter.Node) string {
	var lines []string
	for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Kind() != "line_comment" && prev.Kind() != "block_comment" {
			break
		}
		text := ctx.Text(prev)
		if !strings.HasPrefix(text, "///") && !strings.HasPrefix(text, "//!") && !strings.HasPrefix(text, "/**") {
			break
		}
		text = strings.TrimPrefix(text, "///")
		text = strings.TrimPrefix(text, "//!")
		lines = append([]string{strings.TrimSpace(text)}, lines...)
	}
	return strings.Join(lines, " ")
}

func rustReturnsFallible(ctx *ExtractionContext, retType *sitter.Node) bool {
	if retType == nil {
		return false
	}
	text := ctx.Text(retType)
	return strings.Contains(text, "Result<") || strings.HasPrefix(strings.TrimSpace(text), "Result") ||
		strings.Contains(text, "Option<") || strings.HasPrefix(strings.TrimSpace(text), "Option")
}

func rustBodySummary(ctx *ExtractionContext, body *sitter.Node) *BodySummary {
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
		case "if_expression", "for_expression", "while_expression", "loop_expression":
			summary.Cyclomatic++
		case "match_expression":
			if arms := rustMatchArmCount(n); arms > 0 {
				summary.Cyclomatic += arms - 1
			}
		case "binary_expression":
			op := ctx.ChildText(n, "&&")
			if op == "" {
				op = ctx.ChildText(n, "||")
			}
			if op != "" {
				summary.Cyclomatic++
			}
		case "unsafe_block":
			summary.HasUnsafe = true
		case "await_expression":
			summary.HasAwait = true
		case "try_expression":
			summary.HasFalliblePropagation = true
		case "macro_invocation":
			if name := rustMacroName(ctx, n); panicMacros[name] {
				summary.HasPanic = true
			}
		case "call_expression":
			if isPanicMethodCall(ctx, n) {
				summary.HasPanic = true
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return summary
}

// rustMatchArmCount counts the arms belonging directly to a match
// expression's body, not arms of any match nested inside one of them.
func rustMatchArmCount(matchExpr *sitter.Node) int {
	body := matchExpr.ChildByFieldName("body")
	if body == nil {
		return 0
	}
	arms := 0
	for i := uint(0); i < body.ChildCount(); i++ {
		if body.Child(i).Kind() == "match_arm" {
			arms++
		}
	}
	return arms
}

func isPanicMethodCall(ctx *ExtractionContext, call *sitter.Node) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "field_expression" {
		return false
	}
	field := fn.ChildByFieldName("field")
	if field == nil {
		return false
	}
	return panicMethods[ctx.Text(field)]
}

func rustMacroName(ctx *ExtractionContext, node *sitter.Node) string {
	m := node.ChildByFieldName("macro")
	if m == nil {
		return ""
	}
	return ctx.Text(m)
}

func rustCollectCalls(ctx *ExtractionContext, body *sitter.Node, out *CallInfo) {
	var walk func(n *sitter.Node, underTry bool)
	walk = func(n *sitter.Node, underTry bool) {
		if n.Kind() == "call_expression" {
			fn := n.ChildByFieldName("function")
			if fn != nil {
				target, receiver := rustCallTarget(ctx, fn)
				out.Callees = append(out.Callees, CallEdge{
					Target: target, ReceiverType: receiver, IsFallible: underTry, Line: ctx.Line(n),
				})
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			// Only the expression a `?` applies to directly is fallible.
			walk(n.Child(i), n.Kind() == "try_expression" && i == 0)
		}
	}
	walk(body, false)
}

// rustCallTarget returns the callee's rightmost path segment. The receiver
// type is always reported as "": the declared type of a method call's
// receiver (e.g. `let x: T = …; x.m()`) is not inferred.
func rustCallTarget(ctx *ExtractionContext, fn *sitter.Node) (target, receiver string) {
	switch fn.Kind() {
	case "identifier":
		return ctx.Text(fn), ""
	case "scoped_identifier":
		text := ctx.Text(fn)
		if idx := strings.LastIndex(text, "::"); idx >= 0 {
			return text[idx+2:], ""
		}
		return text, ""
	case "field_expression":
		field := fn.ChildByFieldName("field")
		if field == nil {
			return ctx.Text(fn), ""
		}
		return ctx.Text(field), ""
	default:
		return ctx.Text(fn), ""
	}
}

func (e *RustExtractor) extractStruct(ctx *ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil {
		return false
	}
	var fields []Field
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			field := body.Child(i)
			if field.Kind() != "field_declaration" {
				continue
			}
			fname := field.ChildByFieldName("name")
			ftype := field.ChildByFieldName("type")
			if fname == nil {
				continue
			}
			fields = append(fields, Field{
				Name:       ctx.Text(fname),
				TypeText:   ctx.Text(ftype),
				Visibility: rustVisibilityText(ctx, field),
			})
		}
	}

	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:       ctx.Text(name),
		Kind:       SymbolStruct,
		Line:       ctx.Line(node),
		Visibility: rustVisibilityText(ctx, node),
		Doc:        rustLeadingDoc(ctx, node),
		Signature:  "struct " + ctx.Text(name),
		Fields:     fields,
		Derives:    rustDerives(ctx, node),
	})
	ctx.RecordIdentifierOccurrence(ctx.Text(name), ctx.Line(node))
	return false
}

func (e *RustExtractor) extractEnum(ctx *ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil {
		return false
	}
	var variants []Variant
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			v := body.Child(i)
			if v.Kind() != "enum_variant" {
				continue
			}
			vname := v.ChildByFieldName("name")
			if vname == nil {
				continue
			}
			variant := Variant{Name: ctx.Text(vname)}
			if fl := v.ChildByFieldName("body"); fl != nil && fl.Kind() == "ordered_field_declaration_list" {
				variant.PayloadKind = "tuple"
				variant.Payload = append(variant.Payload, ctx.Text(fl))
			} else if fl != nil {
				variant.PayloadKind = "struct"
				for j := uint(0); j < fl.ChildCount(); j++ {
					f := fl.Child(j)
					if f.Kind() == "field_declaration" {
						variant.Payload = append(variant.Payload, ctx.Text(f))
					}
				}
			}
			variants = append(variants, variant)
		}
	}

	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:       ctx.Text(name),
		Kind:       SymbolEnum,
		Line:       ctx.Line(node),
		Visibility: rustVisibilityText(ctx, node),
		Doc:        rustLeadingDoc(ctx, node),
		Signature:  "enum " + ctx.Text(name),
		Variants:   variants,
		Derives:    rustDerives(ctx, node),
	})
	ctx.RecordIdentifierOccurrence(ctx.Text(name), ctx.Line(node))
	return false
}

// rustHasTestAttribute checks the attribute_items immediately preceding a
// function_item for #[test] or #[tokio::test], the same preceding-sibling
// scan rustDerives uses for #[derive(...)].
func rustHasTestAttribute(ctx *ExtractionContext, node *sitter.Node) bool {
	for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Kind() != "attribute_item" {
			break
		}
		text := ctx.Text(prev)
		if strings.Contains(text, "#[test]") || strings.Contains(text, "::test]") {
			return true
		}
	}
	return false
}

// rustInTestModule reports whether node is lexically nested in a mod named
// "tests" or "test", the other half of the original implementation's
// is_test signal.
func rustInTestModule(ctx *ExtractionContext, node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Kind() != "mod_item" {
			continue
		}
		name := p.ChildByFieldName("name")
		if name == nil {
			continue
		}
		text := ctx.Text(name)
		if text == "tests" || text == "test" {
			return true
		}
	}
	return false
}

func rustDerives(ctx *ExtractionContext, node *sitter.Node) []string {
	var derives []string
	for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Kind() != "attribute_item" {
			break
		}
		text := ctx.Text(prev)
		if !strings.Contains(text, "derive") {
			continue
		}
		start := strings.Index(text, "(")
		end := strings.LastIndex(text, ")")
		if start >= 0 && end > start {
			parts := strings.Split(text[start+1:end], ",")
			for _, p := range parts {
				derives = append(derives, strings.TrimSpace(p))
			}
		}
	}
	return derives
}

func (e *RustExtractor) extractTrait(ctx *ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil {
		return false
	}
	var supertraits []string
	if bounds := node.ChildByFieldName("bounds"); bounds != nil {
		text := ctx.Text(bounds)
		for _, p := range strings.Split(text, "+") {
			supertraits = append(supertraits, strings.TrimSpace(p))
		}
	}

	var methods []string
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			item := body.Child(i)
			if item.Kind() == "function_item" || item.Kind() == "function_signature_item" {
				if mname := item.ChildByFieldName("name"); mname != nil {
					methods = append(methods, ctx.Text(mname))
				}
			}
		}
	}

	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:        ctx.Text(name),
		Kind:        SymbolTrait,
		Line:        ctx.Line(node),
		Visibility:  rustVisibilityText(ctx, node),
		Doc:         rustLeadingDoc(ctx, node),
		Signature:   "trait " + ctx.Text(name),
		Supertraits: supertraits,
		Methods:     methods,
	})
	ctx.RecordIdentifierOccurrence(ctx.Text(name), ctx.Line(node))
	return false
}

func (e *RustExtractor) extractImpl(ctx *ExtractionContext, node *sitter.Node) bool {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return false
	}
	typeName := ctx.Text(typeNode)
	traitName := ""
	if t := node.ChildByFieldName("trait"); t != nil {
		traitName = ctx.Text(t)
	}

	var methods []string
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			item := body.Child(i)
			if item.Kind() == "function_item" {
				if mname := item.ChildByFieldName("name"); mname != nil {
					methods = append(methods, ctx.Text(mname))
				}
			}
		}
	}

	sig := "impl "
	if traitName != "" {
		sig += traitName + " for "
	}
	sig += typeName

	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:      typeName,
		Kind:      SymbolImpl,
		Line:      ctx.Line(node),
		Signature: sig,
		ImplType:  typeName,
		ImplTrait: traitName,
		Methods:   methods,
	})
	// The impl's own children (function_item) are walked normally by the
	// engine, so methods are extracted again (with ImplType set) by
	// extractFunction; returning false here lets that recursion happen.
	return false
}

func (e *RustExtractor) extractConst(ctx *ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil {
		return false
	}
	typeNode := node.ChildByFieldName("type")
	valueNode := node.ChildByFieldName("value")
	value := ""
	if valueNode != nil {
		value = ctx.Text(valueNode)
	}
	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:       ctx.Text(name),
		Kind:       SymbolConst,
		Line:       ctx.Line(node),
		Visibility: rustVisibilityText(ctx, node),
		Signature:  "const " + ctx.Text(name),
		TypeText:   ctx.Text(typeNode),
		Value:      value,
		IsConst:    true,
	})
	return false
}

func (e *RustExtractor) extractStatic(ctx *ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil {
		return false
	}
	typeNode := node.ChildByFieldName("type")
	valueNode := node.ChildByFieldName("value")
	value := ""
	if valueNode != nil {
		value = ctx.Text(valueNode)
	}
	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:       ctx.Text(name),
		Kind:       SymbolStatic,
		Line:       ctx.Line(node),
		Visibility: rustVisibilityText(ctx, node),
		Signature:  "static " + ctx.Text(name),
		TypeText:   ctx.Text(typeNode),
		Value:      value,
		IsMut:      hasDirectChildKind(node, "mutable_specifier"),
	})
	return false
}

func (e *RustExtractor) extractTypeAlias(ctx *ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil {
		return false
	}
	target := node.ChildByFieldName("type")
	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:       ctx.Text(name),
		Kind:       SymbolTypeAlias,
		Line:       ctx.Line(node),
		Visibility: rustVisibilityText(ctx, node),
		Signature:  "type " + ctx.Text(name),
		Target:     ctx.Text(target),
	})
	return false
}

func (e *RustExtractor) extractMod(ctx *ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil {
		return false
	}
	ctx.File.Symbols = append(ctx.File.Symbols, Symbol{
		Name:       ctx.Text(name),
		Kind:       SymbolModule,
		Line:       ctx.Line(node),
		Visibility: rustVisibilityText(ctx, node),
		Signature:  "mod " + ctx.Text(name),
		IsInline:   node.ChildByFieldName("body") != nil,
	})
	return false
}

func (e *RustExtractor) extractUse(ctx *ExtractionContext, node *sitter.Node) bool {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return true
	}
	path := ctx.Text(arg)
	group := ImportInternal
	switch {
	case strings.HasPrefix(path, "std::") || strings.HasPrefix(path, "core::") || strings.HasPrefix(path, "alloc::"):
		group = ImportStd
	case strings.HasPrefix(path, "crate::") || strings.HasPrefix(path, "self::") || strings.HasPrefix(path, "super::"):
		group = ImportInternal
	default:
		group = ImportExternal
	}
	ctx.File.Imports = append(ctx.File.Imports, Import{
		Source: path, Group: group, Line: ctx.Line(node),
	})
	return true
}

func (e *RustExtractor) extractMacroInvocation(ctx *ExtractionContext, node *sitter.Node) bool {
	name := rustMacroName(ctx, node)
	if !panicMacros[name] {
		return false
	}
	fn := rustEnclosingFunctionName(ctx, node)
	ctx.File.Safety.Sites = append(ctx.File.Safety.Sites, SafetySite{
		Line: ctx.Line(node), Kind: "explicit_panic", Function: fn, Detail: name + "!",
	})
	return false
}

func (e *RustExtractor) extractUnsafeBlock(ctx *ExtractionContext, node *sitter.Node) bool {
	ctx.File.Safety.Sites = append(ctx.File.Safety.Sites, SafetySite{
		Line: ctx.Line(node), Kind: "unsafe_block", Function: rustEnclosingFunctionName(ctx, node),
	})
	return false
}

func (e *RustExtractor) extractIndexExpression(ctx *ExtractionContext, node *sitter.Node) bool {
	ctx.File.Safety.Sites = append(ctx.File.Safety.Sites, SafetySite{
		Line: ctx.Line(node), Kind: "index_op", Function: rustEnclosingFunctionName(ctx, node), Detail: ctx.NormalizedText(node),
	})
	return false
}

func (e *RustExtractor) extractPanicMethodCall(ctx *ExtractionContext, node *sitter.Node) bool {
	if !isPanicMethodCall(ctx, node) {
		return false
	}
	fn := node.ChildByFieldName("function")
	field := fn.ChildByFieldName("field")
	ctx.File.Safety.Sites = append(ctx.File.Safety.Sites, SafetySite{
		Line: ctx.Line(node), Kind: "explicit_panic", Function: rustEnclosingFunctionName(ctx, node), Detail: "." + ctx.Text(field) + "()",
	})
	return false
}

func (e *RustExtractor) extractTryExpression(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := rustEnclosingFunctionName(ctx, node)
	if fn != "" {
		ctx.File.Errors.PropagationLines[fn] = append(ctx.File.Errors.PropagationLines[fn], ctx.Line(node))
	}
	return false
}

func rustEnclosingFunctionName(ctx *ExtractionContext, node *sitter.Node) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "function_item" {
			if n := p.ChildByFieldName("name"); n != nil {
				return ctx.Text(n)
			}
		}
	}
	return ""
}
