package service

import (
	"context"

	"github.com/formdesk/backend/internal/db"
	"github.com/formdesk/backend/internal/model"
)

// tallyRepo - 집계 쿼리용 DB 인터페이스
type tallyRepo interface {
	TallySubmissions(ctx context.Context, by string) ([]model.TallyBucket, error)
}

// TallyService runs the grouped-count aggregation behind the chart
// endpoint.
type TallyService struct {
	repo tallyRepo
}

func NewTallyService(repo tallyRepo) *TallyService {
	return &TallyService{repo: repo}
}

func (s *TallyService) Tally(ctx context.Context, by string) (*model.TallyResponse, error) {
	if by == "" {
		by = "category"
	}
	if !db.KnownTallyDimension(by) {
		return nil, ErrInvalidInput
	}

	buckets, err := s.repo.TallySubmissions(ctx, by)
	if err != nil {
		return nil, err
	}

	resp := &model.TallyResponse{
		By:      by,
		Buckets: buckets,
	}
	for _, b := range buckets {
		resp.Total += b.Count
	}
	if resp.Buckets == nil {
		resp.Buckets = []model.TallyBucket{}
	}
	return resp, nil
}
