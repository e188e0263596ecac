package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/maric-labs/registrytools/internal/model"
)

const matchReasonBM25 = "bm25_keyword_similarity"

// BM25Params are the classic Okapi BM25 tuning constants. They are stored
// on the algorithm and logged at construction only: scoring is delegated to
// bleve's match-query relevance ranking with bleve's default settings, and
// these values do not change any score.
type BM25Params struct {
	K1      float64
	B       float64
	Epsilon float64
}

// DefaultBM25Params matches the spec's constructor defaults.
func DefaultBM25Params() BM25Params {
	return BM25Params{K1: 1.5, B: 0.75, Epsilon: 0.25}
}

// BM25Algorithm indexes tools into an in-memory bleve index and scores
// queries with bleve's match-query relevance ranking.
type BM25Algorithm struct {
	params BM25Params
	logger *zap.SugaredLogger

	mu          sync.RWMutex
	index       bleve.Index
	byName      map[string]model.Tool
	fingerprint string
}

// NewBM25 builds a BM25 algorithm instance with a fresh in-memory index.
func NewBM25(params BM25Params, logger *zap.SugaredLogger) (*BM25Algorithm, error) {
	idx, err := newBleveIndex()
	if err != nil {
		return nil, fmt.Errorf("search: create bleve index: %w", err)
	}
	if logger != nil {
		logger.Debugw("bm25 search configured", "params", params.paramString())
	}
	return &BM25Algorithm{
		params: params,
		logger: logger,
		index:  idx,
		byName: make(map[string]model.Tool),
	}, nil
}

// toolTextAnalyzer tokenizes on Unicode word boundaries and lowercases,
// without English stemming or stop-word removal, so name/description/tag
// matching isn't biased toward one natural language. CJK text still
// tokenizes per UAX #29 word boundaries instead of being filtered by an
// English-only stop list.
const toolTextAnalyzer = "tool_text"

func newBleveIndex() (bleve.Index, error) {
	indexMapping := bleve.NewIndexMapping()
	if err := indexMapping.AddCustomAnalyzer(toolTextAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("search: configure analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = toolTextAnalyzer

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = toolTextAnalyzer
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	indexMapping.DefaultMapping = docMapping

	return bleve.NewMemOnly(indexMapping)
}

type bm25Document struct {
	Text string `json:"text"`
}

func (b *BM25Algorithm) Method() model.SearchMethod { return model.SearchMethodBM25 }

// Index rebuilds the bleve index from scratch over the given tool set.
func (b *BM25Algorithm) Index(tools []model.Tool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.indexLocked(tools)
}

// IndexLayered indexes hot tools first so they occupy earlier internal
// segment positions; bleve's relevance ranking is unaffected, but the
// ordering mirrors the original layered-index intent for cache locality.
func (b *BM25Algorithm) IndexLayered(hot, warm, cold []model.Tool) error {
	all := make([]model.Tool, 0, len(hot)+len(warm)+len(cold))
	all = append(all, hot...)
	all = append(all, warm...)
	all = append(all, cold...)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.indexLocked(all)
}

func (b *BM25Algorithm) indexLocked(tools []model.Tool) error {
	idx, err := newBleveIndex()
	if err != nil {
		return fmt.Errorf("search: rebuild bleve index: %w", err)
	}

	batch := idx.NewBatch()
	byName := make(map[string]model.Tool, len(tools))
	for _, t := range tools {
		doc := bm25Document{Text: bm25Document1(t)}
		if err := batch.Index(t.Name, doc); err != nil {
			return fmt.Errorf("search: index tool %q: %w", t.Name, err)
		}
		byName[t.Name] = t
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("search: apply bleve batch: %w", err)
	}

	if b.index != nil {
		_ = b.index.Close()
	}
	b.index = idx
	b.byName = byName
	b.fingerprint = model.Fingerprint(tools)
	return nil
}

// bm25Document1 builds the per-tool document text: name, description, and
// space-joined tags, exactly as the spec's BM25 document construction
// specifies.
func bm25Document1(t model.Tool) string {
	return strings.Join(append([]string{t.Name, t.Description}, t.Tags...), " ")
}

func (b *BM25Algorithm) Search(_ context.Context, q string, tools []model.Tool, k int) ([]model.SearchResult, error) {
	if isBlankQuery(q) {
		return nil, nil
	}

	fp := model.Fingerprint(tools)
	b.mu.RLock()
	stale := fp != b.fingerprint
	b.mu.RUnlock()
	if stale {
		b.mu.Lock()
		if fp != b.fingerprint {
			if err := b.indexLocked(tools); err != nil {
				b.mu.Unlock()
				return nil, err
			}
		}
		b.mu.Unlock()
	}

	b.mu.RLock()
	idx := b.index
	byName := b.byName
	b.mu.RUnlock()

	mq := query.NewMatchQuery(q)
	mq.SetField("text")
	mq.SetFuzziness(0)
	req := bleve.NewSearchRequestOptions(mq, len(byName), 0, false)
	req.Fields = []string{"text"}

	searchResult, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: bm25 query %q: %w", q, err)
	}

	results := make([]model.SearchResult, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		if hit.Score <= 0 {
			continue
		}
		tool, ok := byName[hit.ID]
		if !ok {
			continue
		}
		results = append(results, model.SearchResult{
			ToolName:    tool.Name,
			Description: tool.Description,
			Score:       hit.Score,
			MatchReason: matchReasonBM25,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	normalize(results)
	return results, nil
}

// GetIndexSize reports how many documents are currently indexed, mirroring
// the original implementation's introspection helper.
func (b *BM25Algorithm) GetIndexSize() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byName)
}

// paramString renders the tuned constants for diagnostic logging.
func (p BM25Params) paramString() string {
	return "k1=" + strconv.FormatFloat(p.K1, 'f', -1, 64) +
		" b=" + strconv.FormatFloat(p.B, 'f', -1, 64) +
		" epsilon=" + strconv.FormatFloat(p.Epsilon, 'f', -1, 64)
}
