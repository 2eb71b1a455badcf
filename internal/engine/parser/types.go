// # internal/engine/parser/types.go
package parser

import "time"

// Language is a supported grammar tag. Dispatch throughout the pipeline is
// by extension at parser-pool checkout time; no grammar-specific logic
// belongs outside this package and its extractors.
type Language string

const (
	LangRust    Language = "rust"
	LangPython  Language = "python"
	LangUnknown Language = "unknown"
)

// Visibility mirrors the host language's access markers, collapsed to the
// three-way scheme this pipeline reasons about. Rust's pub(super)/pub(in ...)
// forms both collapse to crate-scoped; an absent marker is module-private.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityCrate   Visibility = "crate-scoped"
	VisibilityPrivate Visibility = "module-private"
)

// SymbolKind tags which of the variant fields on Symbol are meaningful.
type SymbolKind string

const (
	SymbolFunction   SymbolKind = "function"
	SymbolStruct     SymbolKind = "struct"
	SymbolEnum       SymbolKind = "enum"
	SymbolTrait      SymbolKind = "trait"
	SymbolImpl       SymbolKind = "impl"
	SymbolConst      SymbolKind = "const"
	SymbolStatic     SymbolKind = "static"
	SymbolTypeAlias  SymbolKind = "type_alias"
	SymbolMacro      SymbolKind = "macro"
	SymbolModule     SymbolKind = "module"
	SymbolClass      SymbolKind = "class" // Python: replaces Struct/Trait/Impl
)

// BodySummary is captured for Function/Impl-method/Class-method symbols.
type BodySummary struct {
	Lines                  int
	Cyclomatic             int
	HasUnsafe              bool
	HasAwait               bool
	HasPanic               bool
	HasFalliblePropagation bool
}

// Field is a Rust struct field. The Python extractor does not populate
// Fields for classes.
type Field struct {
	Name       string
	TypeText   string
	Visibility Visibility
}

// Variant is a Rust enum variant; PayloadKind is "tuple", "struct" or "".
type Variant struct {
	Name        string
	PayloadKind string
	Payload     []string
}

// Symbol is the per-definition record produced by the Extractor. Only the
// fields relevant to Kind are populated; the zero value of an unused field
// is never inspected by consumers.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Line       int
	Visibility Visibility
	Doc        string
	Signature  string
	IsAsync    bool
	IsUnsafe   bool
	IsConst    bool
	IsTest     bool
	Body       *BodySummary

	// Struct / Class
	Fields  []Field
	Derives []string

	// Enum
	Variants []Variant

	// Trait
	Supertraits []string
	Methods     []string

	// Impl (Rust) / method ownership (both languages)
	ImplType  string // the type this impl block or method belongs to
	ImplTrait string // trait implemented, if any

	// Const / Static
	TypeText string
	Value    string
	IsMut    bool

	// TypeAlias
	Target string

	// Module
	IsInline bool

	// Python Class
	Bases      []string
	IsProtocol bool
	IsAbc      bool
}

// ImportGroup classifies an import's provenance.
type ImportGroup string

const (
	ImportStd      ImportGroup = "std"
	ImportExternal ImportGroup = "external"
	ImportInternal ImportGroup = "internal"
)

// Import is one use/import statement.
type Import struct {
	Source string
	Items  []string
	Alias  string
	Group  ImportGroup
	Line   int
}

// CallEdge is one call expression inside a function body.
type CallEdge struct {
	Target       string // rightmost path segment only
	ReceiverType string // best-effort; "" if unknown
	IsAsync      bool
	IsFallible   bool
	Line         int
}

// CallInfo groups the call edges made from a single caller.
type CallInfo struct {
	CallerName string
	ImplType   string
	Line       int
	Callees    []CallEdge
}

// ErrorInfo is the per-file error-extraction product.
type ErrorInfo struct {
	// OriginatingFunctions are, for Rust, functions whose signature returns
	// Result or Option, and for Python, functions containing any raise
	// statement.
	OriginatingFunctions []string
	// PropagationLines maps a function name to the lines within it where a
	// fallible-propagation construct occurs (Rust `?`; in Python, every
	// raise statement).
	PropagationLines map[string][]int
}

// SafetySite is one flagged safety-relevant construct.
type SafetySite struct {
	Line     int
	Kind     string // unsafe_block, explicit_panic, index_op, async_fn, dangerous_call
	Function string
	Detail   string
}

// SafetyInfo is the per-file safety-extraction product.
type SafetyInfo struct {
	Sites []SafetySite
}

// ParsedFile is the Extractor's output for one source file.
type ParsedFile struct {
	Path     string
	Language Language

	Symbols []Symbol
	Imports []Import
	Calls   []CallInfo
	Errors  ErrorInfo
	Safety  SafetyInfo

	// IdentifierOccurrences indexes every identifier lexeme beginning with
	// an uppercase ASCII letter to the lines it appears on. The Reference
	// Resolver consults this in Phase 2 and matches it against its symbol
	// table without filtering it further.
	IdentifierOccurrences map[string][]int

	TotalComplexity int
	LineCount       int
}

// FileOutcome is the disjoint result recorded for every walked file.
type FileOutcome string

const (
	OutcomeParsed  FileOutcome = "parsed"
	OutcomeCached  FileOutcome = "cached"
	OutcomeSkipped FileOutcome = "skipped"
)

// SkipReason is the taxonomy of per-file failure kinds (see errors package).
type SkipReason string

const (
	SkipIOError             SkipReason = "io_error"
	SkipOversize            SkipReason = "oversize"
	SkipParseError          SkipReason = "parse_error"
	SkipUnsupportedLanguage SkipReason = "unsupported_language"
)

// FileRecord is the walker/aggregator's view of one candidate file.
type FileRecord struct {
	Path        string
	Language    Language
	Size        int64
	ModTime     time.Time
	ContentHash uint64

	Outcome    FileOutcome
	Parsed     *ParsedFile
	SkipReason SkipReason
	SkipDetail string
}
