// Package mq carries deferred cleanup work between the note lifecycle and
// the background consumer. When a note with an attached image is removed,
// the deleter enqueues a cleanup message instead of touching the image
// store itself; the queue survives process restarts, so images of notes
// deleted right before a crash still get cleaned up.
package mq

import "context"

type MessageQueue interface {
	Send(ctx context.Context, body string) error
	// Receive long-polls for one message. It returns nil without error when
	// the poll came back empty. The message stays on the queue, invisible
	// for visibilityTimeout seconds, until Delete acknowledges it.
	Receive(ctx context.Context, visibilityTimeout int32) (*Message, error)
	Delete(ctx context.Context, msg *Message) error
}

// Message is one unit of cleanup work. Id is the broker's receipt for this
// delivery, not an identity of the work itself: redelivery of the same work
// carries a fresh Id.
type Message struct {
	Id   string
	Body string
}
