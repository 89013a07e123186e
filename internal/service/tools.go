package service

import (
	"errors"
	"strings"

	"github.com/gravixlayer/gravix-ocr/internal/model"
)

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}
	if req.Sort == "" {
		req.Sort = model.ByCreated
	}
	if req.Order == "" {
		req.Order = model.OrderDESC
	}

	// Валидируем непустое поле типа сортировки
	req.Sort = strings.ToLower(req.Sort)
	req.Sort = strings.TrimSpace(req.Sort)
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "extraction_uid"
	case strings.Contains(req.Sort, model.ByCreated):
		req.Sort = "created_at"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валидируем непустой порядок
	req.Order = strings.ToLower(req.Order)
	req.Order = strings.TrimSpace(req.Order)
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	case strings.Contains(req.Order, model.OrderDESC):
		req.Order = "DESC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

// validateSource проверяет загруженный файл до каких-либо сетевых вызовов
func validateSource(src *model.SourceImage) error {
	if src == nil || src.File == nil || src.Size <= 0 {
		return model.ErrEmptySource
	}
	if src.Size > model.MaxUploadSize {
		return model.ErrSourceTooLarge
	}
	if !model.InImageTypeMap[src.ContentType] {
		return model.ErrUnsupportedFormat
	}
	return nil
}

// mapGatewayErr passes through the stable upstream taxonomy and hides
// anything unexpected behind the generic 500.
func mapGatewayErr(err error) error {
	switch {
	case errors.Is(err, model.ErrUpstreamAuth),
		errors.Is(err, model.ErrRateLimited),
		errors.Is(err, model.ErrUpstreamFailure),
		errors.Is(err, model.ErrMalformedResponse):
		return err
	default:
		return model.ErrCommon500
	}
}
