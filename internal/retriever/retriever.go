// Package retriever assembles ranked, budget-bounded context bundles by
// walking the graph from seed focus items, and serves the read-side
// operations: status, search, and snippet extraction.
package retriever

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentic-research/codegraph/api"
	"github.com/agentic-research/codegraph/internal/store"
)

// Budget bounds, in tokens approximated as characters / 4.
const (
	DefaultBudget = 8000
	MinBudget     = 1000
	MaxBudget     = 32000

	ftsSeedLimit    = 32
	maxSubgraphNodes = 128
	maxSubgraphEdges = 256
)

// ErrNotIndexed means the repo has no rows yet; callers translate it into
// the {error, suggestion: "repo_index"} answer.
var ErrNotIndexed = errors.New("repo not indexed")

// Retriever answers retrieval queries against one store.
type Retriever struct {
	Store *store.Store

	// MaxSnippetLines caps a single snippet/extract (config-tunable).
	MaxSnippetLines int

	// DefaultBudget applies when a request carries no budget
	// (config-tunable, clamped like any requested value).
	DefaultBudget int

	// contentCache keeps recently read file contents so repeated bundles
	// over the same files skip the disk read.
	contentCache *lru.Cache[string, []byte]
}

// New creates a Retriever with a bounded content cache.
func New(st *store.Store) *Retriever {
	cache, _ := lru.New[string, []byte](128)
	return &Retriever{
		Store:           st,
		MaxSnippetLines: 500,
		DefaultBudget:   DefaultBudget,
		contentCache:    cache,
	}
}

// ClampBudget normalises a requested budget to [MinBudget, MaxBudget],
// applying the default for zero.
func ClampBudget(budget int) int {
	if budget == 0 {
		return DefaultBudget
	}
	if budget < MinBudget {
		return MinBudget
	}
	if budget > MaxBudget {
		return MaxBudget
	}
	return budget
}

// Retrieve builds a ContextBundle for a task. The repo must already be
// indexed; ErrNotIndexed is the only non-exceptional failure mode.
func (r *Retriever) Retrieve(rootPath, task string, budget int, hints *api.Hints) (*api.ContextBundle, error) {
	repo, err := r.Store.FindRepoByPath(rootPath)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotIndexed
	}
	if err != nil {
		return nil, err
	}

	if budget == 0 {
		budget = r.DefaultBudget
	}
	budget = ClampBudget(budget)
	bundle := &api.ContextBundle{
		Repo:     api.BundleRepo{Root: repo.RootPath},
		Intent:   task,
		Focus:    []api.FocusItem{},
		Snippets: []api.Snippet{},
		Notes:    []string{},
		Limits:   api.BundleLimits{Budget: budget},
	}

	focus, err := r.seed(repo.ID, task, hints, bundle)
	if err != nil {
		return nil, err
	}
	bundle.Focus = focus

	if err := r.expand(repo.ID, bundle); err != nil {
		return nil, err
	}
	r.extractSnippets(repo, bundle)

	return bundle, nil
}

// seed builds the focus set: symbol hints, path hints, then ranked FTS hits
// for the tokenised task.
func (r *Retriever) seed(repoID int64, task string, hints *api.Hints, bundle *api.ContextBundle) ([]api.FocusItem, error) {
	var focus []api.FocusItem
	seen := make(map[store.GraphRef]bool)
	add := func(item api.FocusItem) {
		ref := store.GraphRef{Type: item.EntityType, ID: item.EntityID}
		if seen[ref] {
			return
		}
		seen[ref] = true
		focus = append(focus, item)
	}

	if hints != nil {
		for _, name := range hints.Symbols {
			matched, err := r.lookupSymbolHint(repoID, name)
			if err != nil {
				return nil, err
			}
			if len(matched) == 0 {
				bundle.Notes = append(bundle.Notes, fmt.Sprintf("hint symbol %q matched nothing", name))
			}
			for _, sym := range matched {
				add(api.FocusItem{
					EntityType: api.EntitySymbol,
					EntityID:   sym.ID,
					Name:       sym.Name,
					Reason:     "hint:symbol:" + name,
				})
			}
			// Files that import the hinted name or extend it, via the
			// cross-reference index.
			if err := r.seedReferencingFiles(repoID, name, add); err != nil {
				return nil, err
			}
		}
		for _, p := range hints.Paths {
			file, err := r.Store.FindFileByPath(repoID, p)
			if errors.Is(err, store.ErrNotFound) {
				bundle.Notes = append(bundle.Notes, fmt.Sprintf("hint path %q matched nothing", p))
				continue
			}
			if err != nil {
				return nil, err
			}
			add(api.FocusItem{
				EntityType: api.EntityFile,
				EntityID:   file.ID,
				Name:       file.Path,
				Path:       file.Path,
				Reason:     "hint:path:" + p,
			})
		}
	}

	query := strings.Join(tokenize(task), " ")
	if query != "" {
		hits, err := r.Store.Search(repoID, query, ftsSeedLimit)
		if err != nil {
			return nil, err
		}
		ranked, err := r.rankHits(repoID, hits, hints)
		if err != nil {
			return nil, err
		}
		for _, item := range ranked {
			add(item)
		}
		if len(hits) == 0 {
			// Nothing in the text index: fall back to the cross-reference
			// index with the task's raw (case-preserved) tokens.
			for _, token := range rawTokens(task) {
				if err := r.seedReferencingFiles(repoID, token, add); err != nil {
					return nil, err
				}
			}
		}
	}
	return focus, nil
}

// seedReferencingFiles adds every file that imports token or names it as
// a base type, looked up through the name_refs bitmap index.
func (r *Retriever) seedReferencingFiles(repoID int64, token string, add func(api.FocusItem)) error {
	fileIDs, err := r.Store.FilesReferencing(repoID, token)
	if err != nil {
		return err
	}
	for _, id := range fileIDs {
		file, err := r.Store.FindFileByID(id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		add(api.FocusItem{
			EntityType: api.EntityFile,
			EntityID:   file.ID,
			Name:       file.Path,
			Path:       file.Path,
			Reason:     "ref:" + token,
		})
	}
	return nil
}

// lookupSymbolHint matches a hint by short name, falling back to fq_name.
func (r *Retriever) lookupSymbolHint(repoID int64, name string) ([]store.SymbolRecord, error) {
	matched, err := r.Store.FindSymbolsByName(repoID, name)
	if err != nil {
		return nil, err
	}
	if len(matched) > 0 {
		return matched, nil
	}
	sym, err := r.Store.FindSymbolByFqName(repoID, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []store.SymbolRecord{sym}, nil
}

// rankHits orders FTS hits by score descending, ties broken by fq_name
// ascending, and applies the language hint to file hits.
func (r *Retriever) rankHits(repoID int64, hits []store.SearchHit, hints *api.Hints) ([]api.FocusItem, error) {
	type scored struct {
		item   api.FocusItem
		score  float64
		fqName string
	}
	var out []scored
	for _, h := range hits {
		item := api.FocusItem{
			EntityType: h.EntityType,
			EntityID:   h.EntityID,
			Reason:     fmt.Sprintf("fts:%.3f", h.Score),
			Score:      h.Score,
		}
		fqName := ""
		switch h.EntityType {
		case api.EntitySymbol:
			sym, err := r.Store.FindSymbolByID(h.EntityID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			item.Name = sym.Name
			fqName = sym.FqName
		case api.EntityFile:
			file, err := r.Store.FindFileByID(h.EntityID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if hints != nil && hints.Lang != "" && file.Lang != hints.Lang {
				continue
			}
			item.Name = file.Path
			item.Path = file.Path
			fqName = file.Path
		case api.EntityModule:
			mod, err := r.Store.FindModuleByID(h.EntityID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			item.Name = mod.Name
			fqName = mod.Name
		}
		out = append(out, scored{item: item, score: h.Score, fqName: fqName})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].fqName < out[j].fqName
	})
	items := make([]api.FocusItem, len(out))
	for i, s := range out {
		items[i] = s.item
	}
	return items, nil
}

// expand unions the depth-1 neighbourhood of every focus node into the
// bundle subgraph, capped at 128 nodes and 256 edges. Focus nodes enter
// first (shortest path), then neighbours; edges are kept highest-weight
// first within the cap.
func (r *Retriever) expand(repoID int64, bundle *api.ContextBundle) error {
	seenNodes := make(map[store.GraphRef]bool)
	var nodes []store.GraphRef
	seenEdges := make(map[int64]bool)
	var edges []store.EdgeRecord

	for _, f := range bundle.Focus {
		ref := store.GraphRef{Type: f.EntityType, ID: f.EntityID}
		if !seenNodes[ref] {
			seenNodes[ref] = true
			nodes = append(nodes, ref)
		}
	}
	for _, f := range bundle.Focus {
		nb, err := r.Store.GetNeighbours(repoID, f.EntityType, f.EntityID, 1, store.DirBoth)
		if err != nil {
			return err
		}
		for _, n := range nb.Nodes {
			if !seenNodes[n] {
				seenNodes[n] = true
				nodes = append(nodes, n)
			}
		}
		for _, e := range nb.Edges {
			if !seenEdges[e.ID] {
				seenEdges[e.ID] = true
				edges = append(edges, e)
			}
		}
	}

	if len(nodes) > maxSubgraphNodes {
		bundle.Notes = append(bundle.Notes, fmt.Sprintf("subgraph capped at %d nodes (%d found)", maxSubgraphNodes, len(nodes)))
		nodes = nodes[:maxSubgraphNodes]
	}
	if len(edges) > maxSubgraphEdges {
		sort.SliceStable(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })
		bundle.Notes = append(bundle.Notes, fmt.Sprintf("subgraph capped at %d edges (%d found)", maxSubgraphEdges, len(edges)))
		edges = edges[:maxSubgraphEdges]
	}

	kept := make(map[store.GraphRef]bool, len(nodes))
	for _, n := range nodes {
		kept[n] = true
	}

	bundle.Subgraph.Nodes = make([]api.GraphNode, 0, len(nodes))
	for _, n := range nodes {
		bundle.Subgraph.Nodes = append(bundle.Subgraph.Nodes, api.GraphNode{
			Type: n.Type, ID: n.ID, Name: r.nodeName(n),
		})
	}
	bundle.Subgraph.Edges = make([]api.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if !kept[store.GraphRef{Type: e.SrcType, ID: e.SrcID}] || !kept[store.GraphRef{Type: e.DstType, ID: e.DstID}] {
			continue
		}
		bundle.Subgraph.Edges = append(bundle.Subgraph.Edges, api.GraphEdge{
			ID: e.ID, SrcType: e.SrcType, SrcID: e.SrcID,
			Rel: e.Rel, DstType: e.DstType, DstID: e.DstID, Weight: e.Weight,
		})
	}
	return nil
}

func (r *Retriever) nodeName(ref store.GraphRef) string {
	switch ref.Type {
	case api.EntityFile:
		if f, err := r.Store.FindFileByID(ref.ID); err == nil {
			return f.Path
		}
	case api.EntitySymbol:
		if s, err := r.Store.FindSymbolByID(ref.ID); err == nil {
			return s.Name
		}
	case api.EntityModule:
		if m, err := r.Store.FindModuleByID(ref.ID); err == nil {
			return m.Name
		}
	}
	return ""
}
