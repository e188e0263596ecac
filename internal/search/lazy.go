package search

import (
	"context"
	"sync"

	"github.com/maric-labs/registrytools/internal/model"
)

// LazySemantic defers constructing the underlying semantic algorithm
// (including device validation) until the first Index or Search call, so
// the startup cost and device checks are only paid by callers who actually
// exercise semantic search.
type LazySemantic struct {
	construct func() *SemanticAlgorithm

	once sync.Once
	inst *SemanticAlgorithm
}

// NewLazySemantic wraps a constructor so construction is deferred.
func NewLazySemantic(construct func() *SemanticAlgorithm) *LazySemantic {
	return &LazySemantic{construct: construct}
}

func (l *LazySemantic) ensure() *SemanticAlgorithm {
	l.once.Do(func() {
		l.inst = l.construct()
	})
	return l.inst
}

func (l *LazySemantic) Method() model.SearchMethod { return model.SearchMethodSemantic }

func (l *LazySemantic) Index(tools []model.Tool) error {
	return l.ensure().Index(tools)
}

func (l *LazySemantic) IndexLayered(hot, warm, cold []model.Tool) error {
	return l.ensure().IndexLayered(hot, warm, cold)
}

func (l *LazySemantic) Search(ctx context.Context, query string, tools []model.Tool, k int) ([]model.SearchResult, error) {
	return l.ensure().Search(ctx, query, tools, k)
}

func (l *LazySemantic) Unload() error {
	if l.inst == nil {
		return nil
	}
	return l.inst.Unload()
}
