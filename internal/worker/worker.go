// Package worker contains methods for worker to init at start, and to process extraction tasks
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/gravixlayer/gravix-ocr/internal/model"
	"github.com/gravixlayer/gravix-ocr/internal/service"
	kafkago "github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
)

// ExtractionWorkerService - срез сервиса, который нужен воркеру
type ExtractionWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Extraction) error
	Get(ctx context.Context, id string) (*model.Extraction, error)
	ProcessSource(ctx context.Context, raw []byte, cType string) (string, error)
}

type Worker struct {
	storage  service.SourceStorage
	service  ExtractionWorkerService
	queue    <-chan kafkago.Message
	consumer *wbfkafka.Consumer
}

func NewWorkerInstance(strg service.SourceStorage, svc ExtractionWorkerService, q <-chan kafkago.Message, cons *wbfkafka.Consumer) *Worker {
	return &Worker{storage: strg, service: svc, queue: q, consumer: cons}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				log.Println("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			if err := w.initProcessor(ctx, id); err != nil && !errors.Is(err, model.ErrExtractionNotFound) {
				log.Printf("Task %s failed: %v", id, err)
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit queue-message: %v", err)
			}
		}
	}
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	// считать из базы задачу
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("Worker failed to fetch extraction info %q from DB: %w", id, err)
	}
	// проверить статус
	switch task.Status {
	case model.StatusDone:
		return nil
	case model.StatusInProgress:
		return fmt.Errorf("already in progress")
	}

	// на всякий случай проверить поле с результатом
	if task.Text != "" {
		if err := w.service.UpdateStatus(ctx, id, model.StatusDone); err != nil {
			return fmt.Errorf("failed to update status of already-done task in DB: %w", err)
		}
		return nil
	}

	// обновить статус
	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of task %q to `in_progress` in DB: %w", id, err)
	}

	// выполняем само распознавание
	if pErr := w.processTask(ctx, task); pErr != nil {
		// причину оставляем в err_msg - её видно через GET /extractions/:id
		task.Status = model.StatusFailed
		task.ErrMsg = append(task.ErrMsg, pErr.Error())
		if sErr := w.service.SaveResult(ctx, task); sErr != nil {
			return fmt.Errorf("failed to set status of task %q to `failed` in DB: %w \nAFTER\n error while processing task: %w", id, sErr, pErr)
		}
		return fmt.Errorf("failed to process task %q: %w", id, pErr)
	}

	return nil
}

func (w *Worker) processTask(ctx context.Context, task *model.Extraction) error {
	// достать из storage исходник
	src, cType, err := w.storage.Get(ctx, task.SourceKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch source image from storage: %w", err)
	}
	defer closeFileFlow(src)

	raw, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("worker failed to read source image: %w", err)
	}

	// тот же конвейер что и на синхронном пути: препроцессинг + inference
	text, err := w.service.ProcessSource(ctx, raw, cType)
	if err != nil {
		return fmt.Errorf("worker failed to recognize text: %w", err)
	}

	task.Status = model.StatusDone
	task.Text = text

	// обновить запись в БД
	if err := w.service.SaveResult(ctx, task); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Worker failed to close fileflow:", err)
	}
}
