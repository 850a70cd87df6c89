package config

import "time"

const (
	// Queue
	DefaultQueuePrefix      = "chatqueue"
	DefaultQueueReadTimeout = 250 * time.Millisecond

	// Live transport
	DefaultRelayChannel = "chat:relay"

	// Destinations
	ChatViewDestinationPrefix = "/user/queue/chatviews/"
	NotificationDestination   = "/user/queue/notifications"
)
