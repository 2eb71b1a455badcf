package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for a language-specific extractor. Returns
// true if the handler has fully processed the node's children and the
// walker should not recurse into them.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries the shared state and helpers every extractor
// needs while walking a single file's syntax tree.
type ExtractionContext struct {
	Source            []byte
	File              *ParsedFile
	ProcessedChildren bool

	// currentFunction/currentImplType track enclosing scope so call sites,
	// panics and propagation points can be attributed to their owner during
	// a single pre-order pass without a second tree walk.
	currentFunction string
	currentImplType string
}

func (c *ExtractionContext) ResetProcessedChildren() {
	c.ProcessedChildren = false
}

// ExtractorEngine walks a syntax tree, dispatching to a NodeHandler by node
// kind. Kinds without a registered handler simply recurse into children.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}

	ctx.ResetProcessedChildren()
	stop := false
	if handler, ok := e.handlers[node.Kind()]; ok {
		stop = handler(ctx, node)
	}

	if !stop && !ctx.ProcessedChildren {
		for i := uint(0); i < node.ChildCount(); i++ {
			e.Walk(ctx, node.Child(i))
		}
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

// NormalizedText returns Text with interior whitespace runs collapsed to a
// single space, so a multi-line signature renders as one tidy line.
func (c *ExtractionContext) NormalizedText(node *sitter.Node) string {
	text := c.Text(node)
	out := make([]byte, 0, len(text))
	lastSpace := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		isSpace := ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
		if isSpace {
			if !lastSpace && len(out) > 0 {
				out = append(out, ' ')
			}
			lastSpace = true
			continue
		}
		out = append(out, ch)
		lastSpace = false
	}
	for len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}
	return string(out)
}

func (c *ExtractionContext) Line(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Row) + 1
}

func (c *ExtractionContext) ChildText(node *sitter.Node, kind string) string {
	if node == nil {
		return ""
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return c.Text(child)
		}
	}
	return ""
}

// FindChild returns the first direct child with the given kind, or nil.
func (c *ExtractionContext) FindChild(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

// RecordIdentifierOccurrence adds line to the file's identifier-occurrence
// index for name. Only identifiers starting with an uppercase ASCII letter
// are tracked, which is the same type-shaped rule Phase 2 uses, so the
// resolver applies no further filter to these occurrences.
func (c *ExtractionContext) RecordIdentifierOccurrence(name string, line int) {
	if name == "" || name[0] < 'A' || name[0] > 'Z' {
		return
	}
	if c.File.IdentifierOccurrences == nil {
		c.File.IdentifierOccurrences = make(map[string][]int)
	}
	c.File.IdentifierOccurrences[name] = append(c.File.IdentifierOccurrences[name], line)
}

// WalkIdentifiers records every identifier-shaped leaf under node into the
// occurrence index. Extractors call this once per top-level definition body
// rather than special-casing every node kind that can hold an identifier.
func (c *ExtractionContext) WalkIdentifiers(node *sitter.Node, identKinds ...string) {
	if node == nil {
		return
	}
	kind := node.Kind()
	for _, k := range identKinds {
		if kind == k {
			c.RecordIdentifierOccurrence(c.Text(node), c.Line(node))
			return
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		c.WalkIdentifiers(node.Child(i), identKinds...)
	}
}
