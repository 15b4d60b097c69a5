package retriever

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/agentic-research/codegraph/api"
	"github.com/agentic-research/codegraph/internal/fsutil"
	"github.com/agentic-research/codegraph/internal/store"
)

// Status reports whether a repo is indexed and, if so, its counts.
func (r *Retriever) Status(rootPath string) (api.RepoStatus, error) {
	repo, err := r.Store.FindRepoByPath(rootPath)
	if errors.Is(err, store.ErrNotFound) {
		return api.RepoStatus{Status: "not_indexed"}, nil
	}
	if err != nil {
		return api.RepoStatus{}, err
	}

	total, err := r.Store.CountFilesByRepo(repo.ID)
	if err != nil {
		return api.RepoStatus{}, err
	}
	byLang, err := r.Store.CountFilesByLang(repo.ID)
	if err != nil {
		return api.RepoStatus{}, err
	}
	symbols, err := r.Store.CountSymbolsByRepo(repo.ID)
	if err != nil {
		return api.RepoStatus{}, err
	}
	edges, err := r.Store.CountEdgesByRepo(repo.ID)
	if err != nil {
		return api.RepoStatus{}, err
	}

	updated := repo.UpdatedAt
	return api.RepoStatus{
		Status:        "indexed",
		RepoID:        repo.ID,
		RootPath:      repo.RootPath,
		LastIndexedAt: &updated,
		FileCounts:    &api.FileCounts{Total: total, ByLang: byLang},
		SymbolCount:   symbols,
		EdgeCount:     edges,
	}, nil
}

// Search runs a ranked full-text query over the repo's search index.
func (r *Retriever) Search(rootPath, query string, limit int) ([]api.SearchResult, error) {
	repo, err := r.Store.FindRepoByPath(rootPath)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotIndexed
	}
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	hits, err := r.Store.Search(repo.ID, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]api.SearchResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, api.SearchResult{
			EntityType: h.EntityType,
			EntityID:   h.EntityID,
			Text:       h.Text,
			Score:      h.Score,
		})
	}
	return out, nil
}

// Snippet extracts a clamped line range from a repo file. The target path
// is canonicalised and rejected if it escapes the repo root; the range is
// clamped to [1..total] and capped at MaxSnippetLines.
func (r *Retriever) Snippet(rootPath, filePath string, startLine, endLine int) (api.SnippetResponse, error) {
	abs, rel, err := fsutil.ResolveWithin(rootPath, filePath)
	if err != nil {
		return api.SnippetResponse{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return api.SnippetResponse{}, fmt.Errorf("read %s: %w", rel, err)
	}
	lines := strings.Split(string(data), "\n")
	total := len(lines)

	if startLine == 0 {
		startLine = 1
	}
	if endLine == 0 {
		endLine = total
	}
	start, end, _ := clampRange(startLine, endLine, total, r.MaxSnippetLines)

	return api.SnippetResponse{
		Path:       rel,
		StartLine:  start,
		EndLine:    end,
		TotalLines: total,
		Text:       strings.Join(lines[start-1:end], "\n"),
	}, nil
}
