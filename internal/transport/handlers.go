// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"

	"github.com/gravixlayer/gravix-ocr/internal/model"
	"github.com/wb-go/wbf/ginext"
)

type ExtractionHandler struct {
	service ExtractionService
}

type ExtractionService interface {
	Extract(ctx context.Context, src *model.SourceImage) (string, error)                  // синхронное распознавание - ответ сразу в теле
	Create(ctx context.Context, src *model.SourceImage) (*model.Extraction, error)        // поставить задачу в очередь
	Get(ctx context.Context, id string) (*model.Extraction, error)                        // статус задачи
	LoadResult(ctx context.Context, id string) (string, error)                            // текст готовой задачи
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Extraction, error)      // получить список
	Delete(ctx context.Context, id string) error                                          // удалить как в базе, так и в minio
}

func NewExtractionHandler(svc ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{
		service: svc,
	}
}

func (h ExtractionHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Extract - синхронный путь: картинка в запросе, распознанный текст в ответе
func (h ExtractionHandler) Extract(ctx *ginext.Context) {
	src, ok := parseSourceImage(ctx)
	if !ok {
		return
	}
	defer closeFileFlow(src.File)

	text, err := h.service.Extract(ctx.Request.Context(), src)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, map[string]string{"text": text})
}

// Create - асинхронный путь: задача уходит в очередь, клиент забирает результат позже
func (h ExtractionHandler) Create(ctx *ginext.Context) {
	src, ok := parseSourceImage(ctx)
	if !ok {
		return
	}
	defer closeFileFlow(src.File)

	res, err := h.service.Create(ctx.Request.Context(), src)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h ExtractionHandler) GetExtraction(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, err := h.service.Get(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ExtractionHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")

	text, err := h.service.LoadResult(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, map[string]string{"text": text})
}

func (h ExtractionHandler) GetAllExtractions(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ExtractionHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
