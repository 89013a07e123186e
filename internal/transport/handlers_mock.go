package transport

import (
	"context"

	"github.com/gravixlayer/gravix-ocr/internal/model"
)

type mockExtractionService struct {
	extractFn    func(ctx context.Context, src *model.SourceImage) (string, error)
	createFn     func(ctx context.Context, src *model.SourceImage) (*model.Extraction, error)
	getFn        func(ctx context.Context, id string) (*model.Extraction, error)
	loadResultFn func(ctx context.Context, id string) (string, error)
	getListFn    func(ctx context.Context, req *model.ListRequest) ([]model.Extraction, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (m *mockExtractionService) Extract(ctx context.Context, src *model.SourceImage) (string, error) {
	return m.extractFn(ctx, src)
}

func (m *mockExtractionService) Create(ctx context.Context, src *model.SourceImage) (*model.Extraction, error) {
	return m.createFn(ctx, src)
}

func (m *mockExtractionService) Get(ctx context.Context, id string) (*model.Extraction, error) {
	return m.getFn(ctx, id)
}

func (m *mockExtractionService) LoadResult(ctx context.Context, id string) (string, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockExtractionService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Extraction, error) {
	return m.getListFn(ctx, req)
}

func (m *mockExtractionService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}
