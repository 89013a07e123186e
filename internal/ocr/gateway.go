// Package ocr provides the gateway to the hosted Gravix Layer inference API:
// it wraps a preprocessed image into a single chat-completion request and
// returns the extracted text.
package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gravixlayer/gravix-ocr/internal/model"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://api.gravixlayer.com/v1/inference"
	DefaultModel   = "meta-llama/llama-3.2-11b-vision-instruct"
	DefaultTimeout = 60 * time.Second

	// extractionPrompt - фиксированная инструкция модели, без вариаций между запросами
	extractionPrompt = "Extract all the text from the image. Make sure to only return the extracted text and nothing else."

	maxCompletionTokens = 2048
	requestSeed         = 42
)

// Config is everything needed to build a Gateway. Zero-values for
// BaseURL/Model/Timeout fall back to the fixed defaults; only APIKey has no
// default and must come from process configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Gateway struct {
	client *openai.Client
	model  string
}

// New is a pure function from configuration to a client capability - the
// service layer calls it per request instead of holding a process-wide client.
func New(cfg Config) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Gateway{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// ExtractText sends one single-turn request with the image inlined as a
// base64 data URL. Decoding params are deterministic: temperature 0, top_p 1,
// fixed seed, capped output, no streaming. The request is attempted exactly
// once - ошибки апстрима не ретраим, классифицируем и отдаем наверх.
func (g *Gateway) ExtractText(ctx context.Context, img []byte, contentType string) (string, error) {
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img)

	seed := requestSeed
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: extractionPrompt,
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
		// ровно ноль выпадает из JSON из-за omitempty и апстрим подставит
		// свой дефолт - шлем наименьший ненулевой float, он сериализуется как ~0
		MaxTokens:   maxCompletionTokens,
		Temperature: math.SmallestNonzeroFloat32,
		TopP:        1,
		Seed:        &seed,
	})
	if err != nil {
		return "", classifyUpstreamErr(err)
	}

	// пустой choices - это ошибка апстрима, а не "текста нет"
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", model.ErrMalformedResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyUpstreamErr maps transport/API failures onto the stable error set:
// 401 и 429 различаем отдельно, остальное - общий сбой апстрима с деталями
// для диагностики.
func classifyUpstreamErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", model.ErrUpstreamAuth, apiErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", model.ErrRateLimited, apiErr.Message)
		default:
			return fmt.Errorf("%w: upstream status %d: %s", model.ErrUpstreamFailure, apiErr.HTTPStatusCode, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", model.ErrUpstreamFailure, err)
}
