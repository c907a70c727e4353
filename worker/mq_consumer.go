package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/notedrop/notedrop/images"
	"github.com/notedrop/notedrop/mq"
)

// ImageCleanupMessage asks the consumer to remove the stored image of a
// deleted note. Producers are the retrieval path and the expiry sweeper.
type ImageCleanupMessage struct {
	Image string `json:"image"`
}

type MQConsumer struct {
	imageCleanupQueue mq.MessageQueue
	imageStore        *images.Store
}

func NewMQConsumer(imageCleanupQueue mq.MessageQueue, imageStore *images.Store) *MQConsumer {
	return &MQConsumer{
		imageCleanupQueue: imageCleanupQueue,
		imageStore:        imageStore,
	}
}

// File removal is quick; a short visibility timeout keeps failed messages
// coming back promptly.
const visibilityTimeout = 60

func (mqConsumer MQConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := mqConsumer.imageCleanupQueue.Receive(shutdownCtx, visibilityTimeout)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("mqConsumer receive error: %v", err)
			continue
		}

		if msg == nil {
			continue
		}

		var cleanupMsg ImageCleanupMessage
		if err := json.Unmarshal([]byte(msg.Body), &cleanupMsg); err != nil {
			continue
		}

		if cleanupMsg.Image != "" {
			if err := mqConsumer.imageStore.Delete(cleanupMsg.Image); err != nil {
				// Leave the message in the queue; it reappears after the
				// visibility timeout.
				log.Printf("Failed to delete image %s: %v", cleanupMsg.Image, err)
				continue
			}
		}

		err = mqConsumer.imageCleanupQueue.Delete(context.Background(), msg)
		if err != nil {
			log.Printf("mqConsumer delete error: %v", err)
			continue
		}
	}
}
