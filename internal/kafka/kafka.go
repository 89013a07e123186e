// Package kafka prepares the extraction task queue: it creates the task
// topics on the broker and gives a readiness-probe for startup ordering.
package kafka

import (
	"context"
	"errors"
	"log"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

const readyProbeDelay = 10 * time.Second

// InitKafkaTopics - creates the extraction task topics, retrying until the
// broker accepts them or ctx is done. Already-existing topics count as success.
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{
		Topics: make([]kafkago.TopicConfig, 0, len(topics)),
	}

	for _, t := range topics {
		// одна партиция - задачи извлечения обрабатываются одним воркером
		req.Topics = append(req.Topics, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Extraction topic init canceled or timed out")
			return
		default:
		}

		resp, err := client.CreateTopics(ctx, &req)
		if err != nil {
			log.Printf("Extraction topic creation request failed: %v\nWait %v before next try...", err, delay)
			time.Sleep(delay)
			continue
		}

		ready := 0
		for topic, topicErr := range resp.Errors {
			switch {
			case errors.Is(topicErr, kafkago.TopicAlreadyExists):
				ready++
			case topicErr == nil:
			default:
				log.Printf("Extraction topic %q creation error: %v", topic, topicErr)
			}
		}

		if len(resp.Errors) == ready {
			log.Println("Extraction task topics are ready")
			return
		}
	}
}

// WaitKafkaReady - blocks until the task-queue broker accepts connections.
func WaitKafkaReady(brokerAddr string) {
	for {
		conn, err := kafkago.Dial("tcp", brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				log.Println("Failed to close connection after probing task-queue broker:", errConn)
			}
			break
		}
		log.Printf("Task-queue broker not ready, retrying in %v...", readyProbeDelay)
		time.Sleep(readyProbeDelay)
	}
	log.Println("Task-queue broker is ready")
}
