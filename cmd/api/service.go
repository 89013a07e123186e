package main

import (
	"context"

	"github.com/gravixlayer/gravix-ocr/internal/model"
)

type ExtractionAPIService interface {
	Extract(ctx context.Context, src *model.SourceImage) (string, error)
	Create(ctx context.Context, src *model.SourceImage) (*model.Extraction, error)
	Get(ctx context.Context, id string) (*model.Extraction, error)
	LoadResult(ctx context.Context, id string) (string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Extraction, error)
	Delete(ctx context.Context, id string) error
	ReviveOrphans(ctx context.Context, limit int)
}
