package worker

import (
	"context"
	"io"

	"github.com/gravixlayer/gravix-ocr/internal/model"
)

type mockWorkerService struct {
	getFn        func(ctx context.Context, id string) (*model.Extraction, error)
	updateFn     func(ctx context.Context, id string, st model.Status) error
	saveResultFn func(ctx context.Context, ext *model.Extraction) error
	processFn    func(ctx context.Context, raw []byte, cType string) (string, error)
}

func (m *mockWorkerService) Get(ctx context.Context, id string) (*model.Extraction, error) {
	return m.getFn(ctx, id)
}

func (m *mockWorkerService) UpdateStatus(ctx context.Context, id string, st model.Status) error {
	return m.updateFn(ctx, id, st)
}

func (m *mockWorkerService) SaveResult(ctx context.Context, ext *model.Extraction) error {
	return m.saveResultFn(ctx, ext)
}

func (m *mockWorkerService) ProcessSource(ctx context.Context, raw []byte, cType string) (string, error) {
	return m.processFn(ctx, raw, cType)
}

//----------------------------------

type mockStorage struct {
	getFn func(ctx context.Context, key string) (io.ReadCloser, string, error)
	putFn func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, key)
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return nil
}
