package chathub

import "chatview/backend/internal/models"

// Client is one live connection of one user. It abstracts the transport so
// the hub can manage connections uniformly.
type Client interface {
	// GetUserID returns the resolved user id of the connection.
	GetUserID() string
	// GetSessionID returns the transport session id, unique per connection.
	GetSessionID() string

	// ConnectionToken is the presence token issued when this session went
	// online. A disconnect presents it so a stale session cannot clear a
	// newer one.
	ConnectionToken() uint64
	SetConnectionToken(uint64)

	// GetSendChannel returns the channel the hub writes outbound frames to.
	GetSendChannel() chan<- models.OutboundFrame

	// Run starts the read and write pumps.
	Run()
	// Close closes the send channel. The hub calls it exactly once, on unregister.
	Close()
}
