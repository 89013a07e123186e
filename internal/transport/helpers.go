package transport

import (
	"errors"
	"io"
	"log"

	"github.com/gravixlayer/gravix-ocr/internal/model"
	"github.com/wb-go/wbf/ginext"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrUpstreamAuth):
		return 401
	case errors.Is(err, model.ErrRateLimited):
		return 429
	case errors.Is(err, model.ErrExtractionNotFound),
		errors.Is(err, model.ErrResultNotReady):
		return 404
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrSourceTooLarge),
		errors.Is(err, model.ErrUnsupportedFormat):
		return 400
	case errors.Is(err, model.ErrMissingAPIKey),
		errors.Is(err, model.ErrUpstreamFailure),
		errors.Is(err, model.ErrMalformedResponse),
		errors.Is(err, model.ErrCommon500):
		return 500
	default:
		return 500
	}
}

// parseSourceImage достает картинку из multipart-формы; при ошибке сам пишет 400 в ответ
func parseSourceImage(ctx *ginext.Context) (*model.SourceImage, bool) {
	imageFile, imageHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(400, map[string]string{"error": "image is required"})
		return nil, false
	}

	return &model.SourceImage{
		File:        imageFile,
		ContentType: imageHeader.Header.Get("Content-Type"),
		Size:        imageHeader.Size,
	}, true
}

func closeFileFlow(res io.Closer) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
