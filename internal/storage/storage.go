// Package storage wires the app to the object storage keeping uploaded source images
package storage

import (
	"log"
	"time"

	"github.com/gravixlayer/gravix-ocr/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
)

func NewSrcStorage(cfg *config.Config, delay time.Duration) *miniostorage.MinioSourceStorage {
	success := false
	var client *miniostorage.MinioSourceStorage
	var err error

	for !success {
		log.Println("Connecting to source-image storage...")
		client, err = miniostorage.NewMinioClient(cfg)
		if err != nil {
			log.Printf("Failed to init connection to source-image storage: %v\nNext retry in %v...", err, delay)
			time.Sleep(delay)
			continue
		}
		log.Println("Successfully connected source-image storage!")
		success = true
	}

	return client
}
