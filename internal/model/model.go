// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

//---------------------

// Extraction - одна задача распознавания текста: исходник в хранилище, результат в базе
type Extraction struct {
	UID       uuid.UUID   `json:"uid"`
	SourceKey string      `json:"-"`
	Status    Status      `json:"status,omitempty"`
	Text      string      `json:"text,omitempty"`
	ErrMsg    StringSlice `json:"error,omitempty"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// SourceImage - загруженная картинка как она пришла из multipart-формы
type SourceImage struct {
	File        multipart.File
	ContentType string
	Size        int64
}

// ------------------

// MaxUploadSize bounds a single uploaded image.
const MaxUploadSize int64 = 10 << 20 // 10 MiB

// FallbackNoText is returned with a success status when the upstream answers
// with present-but-empty message content.
const FallbackNoText = "No text could be extracted from the image."

// EnvAPIKey is the only required credential; read per request, never cached.
const EnvAPIKey = "GRAVIXLAYER_API_KEY"

// ------------------

var (
	ErrCommon500          error = errors.New("something went wrong. Try again later")          // 500
	ErrIncorrectQuery     error = errors.New("incorrect query parameters")                     // 400
	ErrIncorrectID        error = errors.New("incorrect extraction UUID")                      // 400
	ErrExtractionNotFound error = errors.New("specified extraction UUID doesn't exist")        // 404
	ErrResultNotReady     error = errors.New("requested extraction is not processed yet")      // 404
	ErrEmptySource        error = errors.New("empty/incorrect source image provided")          // 400
	ErrSourceTooLarge     error = errors.New("source image exceeds the 10 MiB limit")          // 400
	ErrUnsupportedFormat  error = errors.New("unsupported source image format")                // 400
	ErrMissingAPIKey      error = errors.New("GRAVIXLAYER_API_KEY is not configured")          // 500
	ErrUpstreamAuth       error = errors.New("inference API rejected the configured API key")  // 401
	ErrRateLimited        error = errors.New("inference API rate limit exceeded")              // 429
	ErrUpstreamFailure    error = errors.New("inference API request failed")                   // 500
	ErrMalformedResponse  error = errors.New("malformed upstream response from inference API") // 500
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	WEBP = "image/webp"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	WEBP: ".webp",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	WEBP: true,
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 || s == nil {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}
