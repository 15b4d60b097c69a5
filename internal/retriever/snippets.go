package retriever

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/codegraph/api"
	"github.com/agentic-research/codegraph/internal/fsutil"
	"github.com/agentic-research/codegraph/internal/hasher"
	"github.com/agentic-research/codegraph/internal/store"
)

// extractSnippets reads the source range of each focus symbol from disk and
// appends Snippet entries until the character budget is spent. Budget
// accounting approximates tokens as characters / 4.
func (r *Retriever) extractSnippets(repo store.Repo, bundle *api.ContextBundle) {
	budget := bundle.Limits.Budget
	usedChars := 0

	for _, f := range bundle.Focus {
		if usedChars/4 >= budget {
			bundle.Notes = append(bundle.Notes, "snippet budget exhausted")
			break
		}
		if f.EntityType != api.EntitySymbol {
			continue
		}
		sym, err := r.Store.FindSymbolByID(f.EntityID)
		if err != nil {
			continue
		}
		file, err := r.Store.FindFileByID(sym.FileID)
		if err != nil {
			continue
		}

		lines, err := r.fileLines(repo.RootPath, file.Path)
		if err != nil {
			bundle.Notes = append(bundle.Notes, fmt.Sprintf("%s: %v", file.Path, err))
			continue
		}

		startLine, endLine, clamped := clampRange(sym.StartLine, sym.EndLine, len(lines), r.MaxSnippetLines)
		if clamped {
			bundle.Notes = append(bundle.Notes, fmt.Sprintf("%s: range %d..%d clamped to %d..%d",
				file.Path, sym.StartLine, sym.EndLine, startLine, endLine))
		}
		text := strings.Join(lines[startLine-1:endLine], "\n")

		bundle.Snippets = append(bundle.Snippets, api.Snippet{
			Path:      file.Path,
			StartLine: startLine,
			EndLine:   endLine,
			Text:      text,
			SHA256:    hasher.HashString(text),
		})
		usedChars += len(text)
	}

	bundle.Limits.UsedEstimate = usedChars / 4
}

// fileLines reads a repo file through the LRU content cache.
func (r *Retriever) fileLines(rootPath, relPath string) ([]string, error) {
	abs, _, err := fsutil.ResolveWithin(rootPath, relPath)
	if err != nil {
		return nil, err
	}
	key := filepath.ToSlash(abs)

	data, ok := r.contentCache.Get(key)
	if !ok {
		data, err = os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		r.contentCache.Add(key, data)
	}
	return strings.Split(string(data), "\n"), nil
}

// clampRange normalises a 1-based inclusive line range against the file
// length and the per-snippet line cap.
func clampRange(start, end, totalLines, maxLines int) (int, int, bool) {
	clamped := false
	if totalLines < 1 {
		totalLines = 1
	}
	if start < 1 {
		start, clamped = 1, true
	}
	if start > totalLines {
		start, clamped = totalLines, true
	}
	if end < start {
		end, clamped = start, true
	}
	if end > totalLines {
		end, clamped = totalLines, true
	}
	if maxLines > 0 && end-start+1 > maxLines {
		end, clamped = start+maxLines-1, true
	}
	return start, end, clamped
}
