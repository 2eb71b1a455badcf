// # internal/engine/parser/parser.go
package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	pipelineerrors "mosaicmap/internal/core/errors"
)

// Extractor is implemented once per supported language.
type Extractor interface {
	Extract(root *sitter.Node, source []byte, filePath string) (*ParsedFile, error)
}

// maxParseErrorRatio bounds the fraction of ERROR/MISSING nodes tolerated
// in a parsed tree before it is treated as a parse_error skip.
const maxParseErrorRatio = 0.10

// Parser dispatches by file extension to a per-language ParserPool and
// Extractor. One Parser is constructed per process and shared by every
// Phase-1 worker; the pools it owns are safe for concurrent use.
type Parser struct {
	pools      map[Language]*ParserPool
	extractors map[Language]Extractor
	extensions map[string]Language
}

// NewParser builds the static two-grammar registry this pipeline supports.
// Unlike the dynamic multi-language loader this was adapted from, the
// grammar set here is fixed at compile time to Rust and Python.
func NewParser() *Parser {
	rustLang := sitter.NewLanguage(tree_sitter_rust.Language())
	pythonLang := sitter.NewLanguage(tree_sitter_python.Language())

	return &Parser{
		pools: map[Language]*ParserPool{
			LangRust:   NewParserPool(rustLang),
			LangPython: NewParserPool(pythonLang),
		},
		extractors: map[Language]Extractor{
			LangRust:   &RustExtractor{},
			LangPython: &PythonExtractor{},
		},
		extensions: map[string]Language{
			".rs":  LangRust,
			".py":  LangPython,
			".pyi": LangPython,
		},
	}
}

// DetectLanguage maps a file extension to a supported Language, or
// LangUnknown if the pipeline has no grammar for it.
func (p *Parser) DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := p.extensions[ext]; ok {
		return lang
	}
	return LangUnknown
}

// IsSupportedPath reports whether path would be accepted by ParseFile.
func (p *Parser) IsSupportedPath(path string) bool {
	return p.DetectLanguage(path) != LangUnknown
}

// SupportedExtensions returns the default extension filter.
func (p *Parser) SupportedExtensions() []string {
	exts := make([]string, 0, len(p.extensions))
	for ext := range p.extensions {
		exts = append(exts, ext)
	}
	return exts
}

// ParseFile parses content (already read by the Reader) and extracts a
// ParsedFile. On failure it returns a *pipelineerrors.DomainError carrying
// the skip-reason code; callers turn these into skipped FileRecords rather
// than propagating them as fatal.
func (p *Parser) ParseFile(path string, content []byte) (*ParsedFile, error) {
	lang := p.DetectLanguage(path)
	if lang == LangUnknown {
		return nil, pipelineerrors.NewWithPath(pipelineerrors.CodeUnsupportedLanguage, "no grammar for extension", path)
	}

	pool := p.pools[lang]
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, pipelineerrors.NewWithPath(pipelineerrors.CodeParseError, "tree-sitter returned no tree", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if errorRatio(root) > maxParseErrorRatio {
		return nil, pipelineerrors.NewWithPath(pipelineerrors.CodeParseError, "too many syntax errors", path)
	}

	extractor := p.extractors[lang]
	parsed, err := extractor.Extract(root, content, path)
	if err != nil {
		return nil, pipelineerrors.WrapWithPath(err, pipelineerrors.CodeParseError, "extraction failed", path)
	}
	parsed.Path = path
	parsed.Language = lang
	parsed.LineCount = strings.Count(string(content), "\n") + 1
	return parsed, nil
}

// errorRatio walks the tree counting ERROR/MISSING nodes against the total
// node count, giving the parser pool a cheap proxy for "too many errors"
// without a full diagnostic pass.
func errorRatio(root *sitter.Node) float64 {
	var total, bad int
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		total++
		if n.IsError() || n.IsMissing() {
			bad++
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}
