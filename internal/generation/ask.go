package generation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/retrieval"
)

// Asker answers questions by retrieving context and passing it to a Generator.
type Asker struct {
	generator Generator
	logger    *zap.Logger
}

// NewAsker returns an Asker using g.
func NewAsker(g Generator, logger *zap.Logger) *Asker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Asker{generator: g, logger: logger}
}

// Provider returns the generator name.
func (a *Asker) Provider() string { return a.generator.Name() }

// Ask retrieves context for req with r and generates an answer. When nothing relevant is
// found the fallback answer is returned without calling the generator.
func (a *Asker) Ask(ctx context.Context, r *retrieval.Retriever, req *models.RetrieveRequest) (*models.AskResponse, error) {
	result, err := r.Search(ctx, req)
	if errors.Is(err, models.ErrNoRelevantContext) {
		return &models.AskResponse{
			Query:             req.Query,
			Answer:            FallbackAnswer,
			Sources:           []*models.Source{},
			NoRelevantContext: true,
			Suggestions:       r.Suggest(req.Query),
			Provider:          a.generator.Name(),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	answer, err := a.generator.Generate(ctx, req.Query, result)
	if err != nil {
		a.logger.Warn("generation failed", zap.String("provider", a.generator.Name()), zap.Error(err))
		return nil, err
	}
	return &models.AskResponse{
		Query:    req.Query,
		Answer:   answer,
		Sources:  retrieval.Sources(result),
		Provider: a.generator.Name(),
	}, nil
}
