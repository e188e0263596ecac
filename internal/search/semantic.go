package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/maric-labs/registrytools/internal/model"
)

const (
	matchReasonSemantic = "semantic_similarity"
	embeddingDimension  = 384
)

// Device selects where embedding computation runs. The embedding backend
// here is pure CPU arithmetic (see the doc comment on
// SemanticAlgorithm), so every selection ultimately resolves to CPU; the
// parsing and warning semantics are preserved for fidelity with the
// contract other implementations of this search method must honor.
type Device string

// resolveDevice implements the spec's device-selection semantics: it
// returns the resolved device and logs any fallback warning itself.
func resolveDevice(raw Device, logger *zap.SugaredLogger) Device {
	s := string(raw)
	switch {
	case s == "" || s == "cpu":
		return "cpu"
	case s == "auto":
		// No accelerator detection in this backend; silently use CPU.
		return "cpu"
	case strings.HasPrefix(s, "gpu:"), strings.HasPrefix(s, "cuda:"):
		if logger != nil {
			logger.Warnw("semantic search device unavailable, falling back to cpu", "requested", raw)
		}
		return "cpu"
	default:
		if logger != nil {
			logger.Warnw("unrecognized semantic search device, falling back to cpu", "requested", raw)
		}
		return "cpu"
	}
}

// SemanticAlgorithm is a dense-vector search backend using a deterministic,
// hash-based pseudo-embedding rather than a trained model. This mirrors the
// teacher repository's own semantic search implementation, which carries no
// ML dependency: tokens are hashed into a fixed-size vector and the vector
// is unit-normalized, so dot product equals cosine similarity.
type SemanticAlgorithm struct {
	dimension int
	logger    *zap.SugaredLogger

	mu          sync.RWMutex
	fingerprint string
	names       []string
	vectors     [][]float32
	byName      map[string]model.Tool
	loaded      bool
}

// NewSemantic constructs a semantic search algorithm. device is resolved
// once at construction and logged, matching the spec's "loads on first use"
// lazy-construction contract when wrapped by LazySemantic (see lazy.go).
func NewSemantic(device string, logger *zap.SugaredLogger) *SemanticAlgorithm {
	resolved := resolveDevice(Device(device), logger)
	if logger != nil {
		logger.Debugw("semantic search device resolved", "device", resolved)
	}
	return &SemanticAlgorithm{
		dimension: embeddingDimension,
		logger:    logger,
		byName:    make(map[string]model.Tool),
	}
}

func (s *SemanticAlgorithm) Method() model.SearchMethod { return model.SearchMethodSemantic }

func (s *SemanticAlgorithm) Index(tools []model.Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexLocked(tools)
	return nil
}

func (s *SemanticAlgorithm) IndexLayered(hot, warm, cold []model.Tool) error {
	all := make([]model.Tool, 0, len(hot)+len(warm)+len(cold))
	all = append(all, hot...)
	all = append(all, warm...)
	all = append(all, cold...)
	return s.Index(all)
}

func (s *SemanticAlgorithm) indexLocked(tools []model.Tool) {
	names := make([]string, len(tools))
	vectors := make([][]float32, len(tools))
	byName := make(map[string]model.Tool, len(tools))
	for i, t := range tools {
		names[i] = t.Name
		vectors[i] = s.embed(embeddingText(t))
		byName[t.Name] = t
	}
	s.names = names
	s.vectors = vectors
	s.byName = byName
	s.fingerprint = model.Fingerprint(tools)
	s.loaded = true
}

func embeddingText(t model.Tool) string {
	return strings.Join(append([]string{t.Name, t.Description}, t.Tags...), " ")
}

// embed tokenizes text, scatters term frequencies across the vector via a
// polynomial rolling hash, then unit-normalizes the result.
func (s *SemanticAlgorithm) embed(text string) []float32 {
	vec := make([]float32, s.dimension)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}

	for tok, count := range freq {
		h := hashToken(tok)
		for i := 0; i < 3; i++ {
			pos := (h + i*17) % s.dimension
			if pos < 0 {
				pos += s.dimension
			}
			vec[pos] += float32(count)
		}
	}

	normalize32(vec)
	return vec
}

func hashToken(tok string) int {
	hash := 0
	for _, ch := range tok {
		hash = hash*31 + int(ch)
	}
	if hash < 0 {
		hash = -hash
	}
	return hash
}

func normalize32(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
}

// CosineSimilarity computes the dot product of two unit-normalized vectors,
// which equals their cosine similarity.
func CosineSimilarity(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func (s *SemanticAlgorithm) Search(_ context.Context, q string, tools []model.Tool, k int) ([]model.SearchResult, error) {
	if isBlankQuery(q) {
		return nil, nil
	}

	fp := model.Fingerprint(tools)
	s.mu.RLock()
	stale := fp != s.fingerprint
	s.mu.RUnlock()
	if stale {
		s.mu.Lock()
		if fp != s.fingerprint {
			s.indexLocked(tools)
		}
		s.mu.Unlock()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	queryVec := s.embed(q)
	results := make([]model.SearchResult, 0, len(s.names))
	for i, name := range s.names {
		score := CosineSimilarity(queryVec, s.vectors[i])
		if score <= 0 {
			continue
		}
		tool := s.byName[name]
		results = append(results, model.SearchResult{
			ToolName:    tool.Name,
			Description: tool.Description,
			Score:       float64(score),
			MatchReason: matchReasonSemantic,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	normalize(results)
	return results, nil
}

// Unload releases the vector matrix, satisfying the spec's requirement that
// the encoder expose an unload operation. The next Index/Search call
// rebuilds from scratch.
func (s *SemanticAlgorithm) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = nil
	s.vectors = nil
	s.byName = make(map[string]model.Tool)
	s.fingerprint = ""
	s.loaded = false
	return nil
}

// GetEmbeddingDimension reports the fixed vector width.
func (s *SemanticAlgorithm) GetEmbeddingDimension() int { return s.dimension }

func (s *SemanticAlgorithm) String() string {
	return fmt.Sprintf("semantic(dim=%s)", strconv.Itoa(s.dimension))
}
