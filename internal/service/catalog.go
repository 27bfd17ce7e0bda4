package service

import (
	"context"

	"github.com/novaiq/backend/internal/domain"
)

// CatalogService serves read access to stored articles, insights and
// hypotheses.
type CatalogService struct {
	repo Repository
}

// NewCatalogService creates the catalog service.
func NewCatalogService(repo Repository) *CatalogService {
	return &CatalogService{repo: repo}
}

// ListArticles returns stored articles, newest first, with the total count
// for pagination.
func (s *CatalogService) ListArticles(ctx context.Context, limit, offset int) ([]domain.Article, int64, error) {
	total, countErr := s.repo.CountArticles(ctx)
	if countErr != nil {
		return nil, 0, countErr
	}

	articles, listErr := s.repo.ListArticles(ctx, limit, offset)
	if listErr != nil {
		return nil, 0, listErr
	}

	return articles, total, nil
}

// GetArticle returns one article by id.
func (s *CatalogService) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	return s.repo.GetArticle(ctx, id)
}

// ListInsights returns insights, newest first.
func (s *CatalogService) ListInsights(ctx context.Context, limit int) ([]domain.Insight, error) {
	return s.repo.ListInsights(ctx, limit)
}

// GetInsight returns one insight by id.
func (s *CatalogService) GetInsight(ctx context.Context, id int64) (*domain.Insight, error) {
	return s.repo.GetInsight(ctx, id)
}

// ListHypotheses returns hypotheses, newest first.
func (s *CatalogService) ListHypotheses(ctx context.Context, limit int) ([]domain.Hypothesis, error) {
	return s.repo.ListHypotheses(ctx, limit)
}

// GetHypothesis returns one hypothesis by id.
func (s *CatalogService) GetHypothesis(ctx context.Context, id int64) (*domain.Hypothesis, error) {
	return s.repo.GetHypothesis(ctx, id)
}
