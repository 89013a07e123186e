// Package service provides business-logic for the app
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gravixlayer/gravix-ocr/internal/imageproc"
	"github.com/gravixlayer/gravix-ocr/internal/model"
	"github.com/gravixlayer/gravix-ocr/internal/mwlogger"
	"github.com/gravixlayer/gravix-ocr/internal/ocr"
	"github.com/gravixlayer/gravix-ocr/internal/repository"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/retry"
)

type ExtractionService struct {
	cfg          *config.Config
	repo         repository.ExtractionRepo
	publisher    TaskPublisher
	storage      SourceStorage
	newGateway   GatewayBuilder
	srcKeyPrefix string
}

func NewExtractionService(cfg *config.Config, rep repository.ExtractionRepo, pub TaskPublisher, strg SourceStorage, gb GatewayBuilder) *ExtractionService {
	if gb == nil {
		gb = func(c ocr.Config) TextExtractor { return ocr.New(c) }
	}
	return &ExtractionService{
		cfg:          cfg,
		repo:         rep,
		publisher:    pub,
		storage:      strg,
		newGateway:   gb,
		srcKeyPrefix: "src/",
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// SourceStorage - контракт для работы с хранилищем исходников
type SourceStorage interface {
	Delete(ctx context.Context, uid string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// TextExtractor - контракт шлюза к inference API
type TextExtractor interface {
	ExtractText(ctx context.Context, img []byte, contentType string) (string, error)
}

// GatewayBuilder builds a gateway from configuration; called per request so
// the credential is never cached in process-wide state.
type GatewayBuilder func(cfg ocr.Config) TextExtractor

// Стратегия ретрая отправки в очередь - ретраится только публикация задач,
// сами запросы к inference API выполняются строго один раз
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

// Extract is the synchronous path: validate the upload, run the shared
// pipeline, return the text. Ничего на диск/в базу не пишем - состояние
// живет только в рамках запроса.
func (c ExtractionService) Extract(ctx context.Context, src *model.SourceImage) (string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := validateSource(src); err != nil {
		return "", err
	}

	raw, err := io.ReadAll(io.LimitReader(src.File, model.MaxUploadSize+1))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read uploaded image")
		return "", model.ErrCommon500
	}
	if int64(len(raw)) > model.MaxUploadSize {
		return "", model.ErrSourceTooLarge
	}

	return c.ProcessSource(ctx, raw, src.ContentType)
}

// ProcessSource runs the preprocess-then-recognize core over raw image bytes.
// Shared between the sync endpoint and the async worker.
func (c ExtractionService) ProcessSource(ctx context.Context, raw []byte, cType string) (string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	// ключ проверяем до любых сетевых вызовов - отсутствие конфига это
	// отдельная ошибка, а не generic 500 от апстрима
	apiKey := c.cfg.GetString(model.EnvAPIKey)
	if apiKey == "" {
		return "", model.ErrMissingAPIKey
	}

	payload, payloadType := c.preprocess(ctx, raw, cType)

	gw := c.newGateway(ocr.Config{
		APIKey:  apiKey,
		BaseURL: c.cfg.GetString("OCR_BASE_URL"),
		Model:   c.cfg.GetString("OCR_MODEL"),
	})

	text, err := gw.ExtractText(ctx, payload, payloadType)
	if err != nil {
		logger.Error().Err(err).Msg("Inference request failed")
		return "", mapGatewayErr(err)
	}

	if strings.TrimSpace(text) == "" {
		return model.FallbackNoText, nil
	}
	return text, nil
}

// preprocess enhances the image for recognition. Любой сбой пайплайна не
// фатален: логируем причину и отправляем апстриму оригинальные байты как есть.
func (c ExtractionService) preprocess(ctx context.Context, raw []byte, cType string) ([]byte, string) {
	processed, err := imageproc.Prepare(raw)
	if err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Warn().Err(err).Msg("Preprocessing failed, falling back to the original image")
		return raw, cType
	}
	// пайплайн всегда перекодирует в PNG
	return processed, model.PNG
}

// Create enqueues an asynchronous extraction: source image goes to storage,
// the task row to DB, the UID to the queue.
func (c ExtractionService) Create(ctx context.Context, src *model.SourceImage) (*model.Extraction, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := validateSource(src); err != nil {
		return nil, err
	}

	newExt := &model.Extraction{UID: uuid.New()}

	// кладем в хранилище сорсник
	srcKey := c.srcKeyPrefix + newExt.UID.String() + model.GetImageFileExt[src.ContentType]
	if err := c.storage.Put(ctx, srcKey, src.Size, src.ContentType, src.File); err != nil {
		logger.Error().Err(err).Msg("Failed to save src-image in Storage")
		return nil, model.ErrCommon500
	}
	newExt.SourceKey = srcKey

	// ставим статус и таймстамп
	newExt.Status = model.StatusCreated
	now := time.Now().UTC()
	newExt.CreatedAt = &now

	// шлем в базу
	if err := c.repo.Create(ctx, newExt); err != nil {
		logger.Error().Err(err).Msg("Failed to create extraction in DB")
		return nil, model.ErrCommon500
	}

	// кладем в очередь задач(в кафку)
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newExt.UID.String()), nil); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish extraction %q to task-queue", newExt.UID))
		return nil, model.ErrCommon500
	}
	return newExt, nil
}

func (c ExtractionService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Extraction, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch extractions list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c ExtractionService) Get(ctx context.Context, id string) (*model.Extraction, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrExtractionNotFound):
			return nil, model.ErrExtractionNotFound
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch extraction %q from DB", id))
			return nil, model.ErrCommon500
		}
	}

	return res, nil
}

// LoadResult returns the recognized text of a finished extraction.
func (c ExtractionService) LoadResult(ctx context.Context, id string) (string, error) {
	ext, err := c.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if ext.Status != model.StatusDone {
		return "", model.ErrResultNotReady
	}

	return ext.Text, nil
}

func (c ExtractionService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	// читаем из базы
	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrExtractionNotFound):
			return model.ErrExtractionNotFound // 404
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch extraction %q from DB", id))
			return model.ErrCommon500
		}
	}

	// удаляем из базы
	if err := c.repo.Delete(ctx, id); err != nil {
		logger.Error().Err(err).Msg("Failed to delete extraction from DB")
		return model.ErrCommon500
	}

	// удаляем из хранилища сорсник
	if err := c.storage.Delete(ctx, res.SourceKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete src-image from Storage")
		return model.ErrCommon500
	}

	return nil
}

func (c ExtractionService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, model.ErrExtractionNotFound):
			return model.ErrExtractionNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to update extraction status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c ExtractionService) SaveResult(ctx context.Context, input *model.Extraction) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, model.ErrExtractionNotFound):
			return model.ErrExtractionNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to save extraction result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c ExtractionService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Msg("Failed to publish orphan to queue")
		}
	}
}
