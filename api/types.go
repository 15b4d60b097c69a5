package api

import "time"

// Lang names as stored on File rows and used to pick a grammar.
const (
	LangTypeScript = "typescript"
	LangJavaScript = "javascript"
	LangPython     = "python"
	LangGo         = "go"
	LangRust       = "rust"
	LangJava       = "java"
	LangRuby       = "ruby"
	LangPHP        = "php"
	LangC          = "c"
	LangCPP        = "cpp"
	LangCSharp     = "csharp"
)

// Symbol kinds.
const (
	KindFunction  = "function"
	KindMethod    = "method"
	KindClass     = "class"
	KindInterface = "interface"
	KindType      = "type"
	KindVariable  = "variable"
	KindEnum      = "enum"
	KindProperty  = "property"
	KindNamespace = "namespace"
)

// Edge relations.
const (
	RelImports    = "IMPORTS"
	RelExports    = "EXPORTS"
	RelDefines    = "DEFINES"
	RelReferences = "REFERENCES"
	RelExtends    = "EXTENDS"
	RelImplements = "IMPLEMENTS"
	RelTests      = "TESTS"
)

// Entity types for edge endpoints and search entries.
const (
	EntityFile   = "file"
	EntitySymbol = "symbol"
	EntityModule = "module"
)

// Import is one dependency statement as it appears in source.
type Import struct {
	Source      string   `json:"source"`
	Names       []string `json:"names"`
	IsDefault   bool     `json:"isDefault"`
	IsNamespace bool     `json:"isNamespace"`
	IsTypeOnly  bool     `json:"isTypeOnly"`
	IsDynamic   bool     `json:"isDynamic"`
}

// Export is one exported name, possibly re-exported from another source.
type Export struct {
	Name       string `json:"name"`
	IsDefault  bool   `json:"isDefault"`
	IsReExport bool   `json:"isReExport"`
	Source     string `json:"source,omitempty"`
}

// SymbolDecl is a declaration found in a source file.
// Lines are 1-based inclusive; columns are 0-based.
type SymbolDecl struct {
	Kind       string   `json:"kind"`
	Name       string   `json:"name"`
	Signature  string   `json:"signature,omitempty"`
	StartLine  int      `json:"startLine"`
	StartCol   int      `json:"startCol"`
	EndLine    int      `json:"endLine"`
	EndCol     int      `json:"endCol"`
	Extends    string   `json:"extends,omitempty"`
	Implements []string `json:"implements,omitempty"`
}

// ParseResult is the common output of every language extractor.
type ParseResult struct {
	Imports     []Import     `json:"imports"`
	Exports     []Export     `json:"exports"`
	Symbols     []SymbolDecl `json:"symbols"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
}

// IndexSummary reports one indexing run.
type IndexSummary struct {
	RunID        string   `json:"runId"`
	RepoID       int64    `json:"repoId"`
	RootPath     string   `json:"rootPath"`
	Mode         string   `json:"mode"`
	FilesIndexed int      `json:"filesIndexed"`
	FilesSkipped int      `json:"filesSkipped"`
	FilesDeleted int      `json:"filesDeleted"`
	SymbolCount  int      `json:"symbolCount"`
	EdgeCount    int      `json:"edgeCount"`
	ModuleCount  int      `json:"moduleCount"`
	Warnings     []string `json:"warnings,omitempty"`
	Cancelled    bool     `json:"cancelled,omitempty"`
	DurationMs   int64    `json:"durationMs"`
}

// RepoStatus is the answer to a repo_status request.
type RepoStatus struct {
	Status        string         `json:"status"` // "indexed" | "not_indexed"
	RepoID        int64          `json:"repoId,omitempty"`
	RootPath      string         `json:"rootPath,omitempty"`
	LastIndexedAt *time.Time     `json:"lastIndexedAt,omitempty"`
	FileCounts    *FileCounts    `json:"fileCounts,omitempty"`
	SymbolCount   int            `json:"symbolCount,omitempty"`
	EdgeCount     int            `json:"edgeCount,omitempty"`
}

// FileCounts breaks indexed files down by language.
type FileCounts struct {
	Total  int            `json:"total"`
	ByLang map[string]int `json:"byLang"`
}

// SearchResult is one ranked full-text hit.
type SearchResult struct {
	EntityType string  `json:"entityType"`
	EntityID   int64   `json:"entityId"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SnippetResponse is the answer to a repo_snippet request.
type SnippetResponse struct {
	Path       string `json:"path"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	TotalLines int    `json:"total_lines"`
	Text       string `json:"text"`
}

// Hints narrow retrieval seeding.
type Hints struct {
	Paths   []string `json:"paths,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
	Lang    string   `json:"lang,omitempty"`
}

// FocusItem is a seed node for retrieval, with the reason it was chosen.
type FocusItem struct {
	EntityType string  `json:"entityType"`
	EntityID   int64   `json:"entityId"`
	Name       string  `json:"name"`
	Path       string  `json:"path,omitempty"`
	Reason     string  `json:"reason"`
	Score      float64 `json:"score,omitempty"`
}

// Snippet is an extracted source range with a content digest.
type Snippet struct {
	Path      string `json:"path"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Text      string `json:"text"`
	SHA256    string `json:"sha256"`
}

// GraphNode is a node reference inside a bundle subgraph.
type GraphNode struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// GraphEdge is an edge inside a bundle subgraph.
type GraphEdge struct {
	ID      int64   `json:"id"`
	SrcType string  `json:"srcType"`
	SrcID   int64   `json:"srcId"`
	Rel     string  `json:"rel"`
	DstType string  `json:"dstType"`
	DstID   int64   `json:"dstId"`
	Weight  float64 `json:"weight"`
}

// Subgraph is the local neighbourhood returned with a bundle.
type Subgraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// BundleRepo identifies the repo a bundle was assembled from.
type BundleRepo struct {
	Root string  `json:"root"`
	Rev  *string `json:"rev"`
}

// BundleLimits is the budget envelope of a bundle.
type BundleLimits struct {
	Budget       int `json:"budget"`
	UsedEstimate int `json:"used_estimate"`
}

// ContextBundle is the retrieval result.
type ContextBundle struct {
	Repo     BundleRepo   `json:"repo"`
	Intent   string       `json:"intent"`
	Focus    []FocusItem  `json:"focus"`
	Snippets []Snippet    `json:"snippets"`
	Subgraph Subgraph     `json:"subgraph"`
	Notes    []string     `json:"notes"`
	Limits   BundleLimits `json:"limits"`
}

// RetrievalError is the non-exceptional failure mode of repo_context_get:
// the repo exists but has not been indexed yet.
type RetrievalError struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion"`
}
