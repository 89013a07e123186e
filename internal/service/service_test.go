package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/gravixlayer/gravix-ocr/internal/model"
	"github.com/gravixlayer/gravix-ocr/internal/ocr"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/retry"
)

func testConfig(t *testing.T, apiKey string) *config.Config {
	t.Helper()

	t.Setenv(model.EnvAPIKey, apiKey)
	cfg := config.New()
	cfg.EnableEnv("")
	return cfg
}

func testPNGBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func svcWithExtractor(cfg *config.Config, ext TextExtractor) ExtractionService {
	return ExtractionService{
		cfg: cfg,
		newGateway: func(ocr.Config) TextExtractor {
			return ext
		},
	}
}

// EXTRACT - SUCCESS
func TestExtractionService_Extract_OK(t *testing.T) {
	cfg := testConfig(t, "test-key")

	extractor := &mockExtractor{
		extractFn: func(ctx context.Context, img []byte, ct string) (string, error) {
			// валидный PNG должен пройти пайплайн и уйти уже перекодированным
			require.Equal(t, model.PNG, ct)
			require.NotEmpty(t, img)
			return "recognized text", nil
		},
	}

	svc := svcWithExtractor(cfg, extractor)

	src := testPNGBytes(t, 40, 20)
	text, err := svc.Extract(context.Background(), &model.SourceImage{
		File:        newFakeFileBytes(src),
		ContentType: model.PNG,
		Size:        int64(len(src)),
	})
	require.NoError(t, err)
	require.Equal(t, "recognized text", text)
}

// EXTRACT - VALIDATION FAILURES
func TestExtractionService_Extract_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		src     *model.SourceImage
		wantErr error
	}{
		{
			name:    "nil source",
			src:     nil,
			wantErr: model.ErrEmptySource,
		},
		{
			name:    "nil file",
			src:     &model.SourceImage{ContentType: model.PNG, Size: 10},
			wantErr: model.ErrEmptySource,
		},
		{
			name:    "zero size",
			src:     &model.SourceImage{File: newFakeFile("img"), ContentType: model.PNG},
			wantErr: model.ErrEmptySource,
		},
		{
			name:    "too large",
			src:     &model.SourceImage{File: newFakeFile("img"), ContentType: model.PNG, Size: model.MaxUploadSize + 1},
			wantErr: model.ErrSourceTooLarge,
		},
		{
			name:    "unsupported type",
			src:     &model.SourceImage{File: newFakeFile("img"), ContentType: "image/tiff", Size: 10},
			wantErr: model.ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// шлюз не должен вызываться вообще
			svc := svcWithExtractor(testConfig(t, "test-key"), &mockExtractor{
				extractFn: func(ctx context.Context, img []byte, ct string) (string, error) {
					t.Fatal("gateway must not be called on invalid input")
					return "", nil
				},
			})

			_, err := svc.Extract(context.Background(), tt.src)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// EXTRACT - MISSING CREDENTIAL
func TestExtractionService_Extract_MissingAPIKey(t *testing.T) {
	svc := svcWithExtractor(testConfig(t, ""), &mockExtractor{
		extractFn: func(ctx context.Context, img []byte, ct string) (string, error) {
			t.Fatal("gateway must not be called without a configured key")
			return "", nil
		},
	})

	_, err := svc.Extract(context.Background(), &model.SourceImage{
		File:        newFakeFile("img"),
		ContentType: model.PNG,
		Size:        3,
	})
	require.ErrorIs(t, err, model.ErrMissingAPIKey)
}

// EXTRACT - EMPTY UPSTREAM TEXT -> FALLBACK LITERAL
func TestExtractionService_Extract_EmptyTextFallback(t *testing.T) {
	svc := svcWithExtractor(testConfig(t, "test-key"), &mockExtractor{
		extractFn: func(ctx context.Context, img []byte, ct string) (string, error) {
			return "   \n", nil
		},
	})

	text, err := svc.Extract(context.Background(), &model.SourceImage{
		File:        newFakeFile("img"),
		ContentType: model.PNG,
		Size:        3,
	})
	require.NoError(t, err)
	require.Equal(t, model.FallbackNoText, text)
}

// EXTRACT - PREPROCESSING FALLBACK
func TestExtractionService_Extract_PreprocessFallback(t *testing.T) {
	original := []byte("definitely-not-an-image")

	svc := svcWithExtractor(testConfig(t, "test-key"), &mockExtractor{
		extractFn: func(ctx context.Context, img []byte, ct string) (string, error) {
			// пайплайн упал - апстриму уходит оригинал с исходным MIME
			require.Equal(t, original, img)
			require.Equal(t, model.JPEG, ct)
			return "text from original", nil
		},
	})

	text, err := svc.Extract(context.Background(), &model.SourceImage{
		File:        newFakeFileBytes(original),
		ContentType: model.JPEG,
		Size:        int64(len(original)),
	})
	require.NoError(t, err)
	require.Equal(t, "text from original", text)
}

// EXTRACT - UPSTREAM TAXONOMY PASSTHROUGH
func TestExtractionService_Extract_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		gwErr   error
		wantErr error
	}{
		{"auth", fmt.Errorf("%w: bad key", model.ErrUpstreamAuth), model.ErrUpstreamAuth},
		{"rate limit", fmt.Errorf("%w: slow down", model.ErrRateLimited), model.ErrRateLimited},
		{"malformed", fmt.Errorf("%w: no choices", model.ErrMalformedResponse), model.ErrMalformedResponse},
		{"generic upstream", fmt.Errorf("%w: status 502", model.ErrUpstreamFailure), model.ErrUpstreamFailure},
		{"unknown error hidden", errors.New("some internal detail"), model.ErrCommon500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := svcWithExtractor(testConfig(t, "test-key"), &mockExtractor{
				extractFn: func(ctx context.Context, img []byte, ct string) (string, error) {
					return "", tt.gwErr
				},
			})

			_, err := svc.Extract(context.Background(), &model.SourceImage{
				File:        newFakeFile("img"),
				ContentType: model.PNG,
				Size:        3,
			})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// EXTRACT - CONCURRENT REQUESTS DON'T INTERFERE
func TestExtractionService_Extract_ConcurrentIsolation(t *testing.T) {
	svc := svcWithExtractor(testConfig(t, "test-key"), &mockExtractor{
		extractFn: func(ctx context.Context, img []byte, ct string) (string, error) {
			// отвечаем содержимым картинки - так видно чей ответ кому ушел
			return string(img), nil
		},
	})

	const workers = 8
	results := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			payload := fmt.Sprintf("payload-%d", n)
			results[n], errs[n] = svc.Extract(context.Background(), &model.SourceImage{
				File:        newFakeFile(payload),
				ContentType: model.PNG,
				Size:        int64(len(payload)),
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, fmt.Sprintf("payload-%d", i), results[i])
	}
}

// CREATE - SUCCESS
func TestExtractionService_Create_OK(t *testing.T) {
	ctx := context.Background()

	repo := &mockRepo{
		createFn: func(ctx context.Context, ext *model.Extraction) error {
			require.NotEmpty(t, ext.UID)
			require.Equal(t, model.StatusCreated, ext.Status)
			require.Contains(t, ext.SourceKey, "src/")
			return nil
		},
	}

	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			return nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			require.NotEmpty(t, key)
			return nil
		},
	}

	svc := ExtractionService{
		repo:         repo,
		storage:      storage,
		publisher:    pub,
		srcKeyPrefix: "src/",
	}

	ext, err := svc.Create(ctx, &model.SourceImage{
		File:        newFakeFile("img"),
		ContentType: model.JPEG,
		Size:        3,
	})
	require.NoError(t, err)
	require.NotNil(t, ext)
}

// CREATE - STORAGE PUT FAIL
func TestExtractionService_Create_StorageError(t *testing.T) {
	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			return errors.New("storage is down")
		},
	}

	svc := ExtractionService{
		repo:         &mockRepo{},
		storage:      storage,
		srcKeyPrefix: "src/",
	}

	_, err := svc.Create(context.Background(), &model.SourceImage{
		File:        newFakeFile("img"),
		ContentType: model.JPEG,
		Size:        3,
	})
	require.ErrorIs(t, err, model.ErrCommon500)
}

// GETLIST - SUCCESS
func TestExtractionService_GetList_OK(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Extraction, error) {
			require.Equal(t, 1, req.Page)
			return []model.Extraction{{UID: uuid.New()}}, nil
		},
	}

	svc := ExtractionService{repo: repo}

	res, err := svc.GetList(context.Background(), &model.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

// GET - BAD ID
func TestExtractionService_Get_BadID(t *testing.T) {
	svc := ExtractionService{}

	_, err := svc.Get(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, model.ErrIncorrectID)
}

// LOADRESULT - NOT READY
func TestExtractionService_LoadResult_NotReady(t *testing.T) {
	id := uuid.New().String()

	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Extraction, error) {
			return &model.Extraction{UID: uuid.MustParse(uid), Status: model.StatusInProgress}, nil
		},
	}

	svc := ExtractionService{repo: repo}

	_, err := svc.LoadResult(context.Background(), id)
	require.ErrorIs(t, err, model.ErrResultNotReady)
}

// LOADRESULT - SUCCESS
func TestExtractionService_LoadResult_OK(t *testing.T) {
	id := uuid.New().String()

	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Extraction, error) {
			return &model.Extraction{
				UID:    uuid.MustParse(uid),
				Status: model.StatusDone,
				Text:   "stored text",
			}, nil
		},
	}

	svc := ExtractionService{repo: repo}

	text, err := svc.LoadResult(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "stored text", text)
}

// DELETE - SUCCESS
func TestExtractionService_Delete_OK(t *testing.T) {
	id := uuid.New().String()

	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Extraction, error) {
			return &model.Extraction{UID: uuid.MustParse(uid), SourceKey: "src/" + uid + ".png"}, nil
		},
		deleteFn: func(ctx context.Context, uid string) error {
			return nil
		},
	}

	storage := &mockStorage{
		deleteFn: func(ctx context.Context, key string) error {
			require.Contains(t, key, "src/")
			return nil
		},
	}

	svc := ExtractionService{repo: repo, storage: storage}

	require.NoError(t, svc.Delete(context.Background(), id))
}

// DELETE - NOT FOUND
func TestExtractionService_Delete_NotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Extraction, error) {
			return nil, model.ErrExtractionNotFound
		},
	}

	svc := ExtractionService{repo: repo}

	err := svc.Delete(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrExtractionNotFound)
}

// REVIVEORPHANS - PUBLISHES ALL
func TestExtractionService_ReviveOrphans(t *testing.T) {
	orphans := []string{uuid.New().String(), uuid.New().String()}
	published := 0

	repo := &mockRepo{
		fetchOrphansFn: func(ctx context.Context, limit int) ([]string, error) {
			return orphans, nil
		},
	}
	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			published++
			return nil
		},
	}

	svc := ExtractionService{repo: repo, publisher: pub}

	svc.ReviveOrphans(context.Background(), 20)
	require.Equal(t, len(orphans), published)
}

// VALIDATEQUERYPARAMS - DEFAULTS AND NORMALIZATION
func TestValidateQueryParams(t *testing.T) {
	req := &model.ListRequest{Page: -1, Limit: 500, Sort: " UID ", Order: "Ascend"}
	validateQueryParams(req)

	require.Equal(t, 1, req.Page)
	require.Equal(t, 30, req.Limit)
	require.Equal(t, "extraction_uid", req.Sort)
	require.Equal(t, "ASC", req.Order)
}
