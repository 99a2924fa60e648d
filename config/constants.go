package config

import "time"

// Service Defaults
const (
	// DefaultPort is the HTTP API listen port when PORT is unset
	DefaultPort = "8080"
)

// Kafka Constants
const (
	// DefaultBatchTopic carries scored item batches from the upstream scorer
	DefaultBatchTopic = "storymill.batches"

	// DefaultConsumerGroup identifies the dedup worker consumer group
	DefaultConsumerGroup = "storymill-dedup"
)

// Seen-State Constants
const (
	// DefaultSeenKeyPrefix namespaces the Redis seen-state keys
	DefaultSeenKeyPrefix = "storymill:seen"

	// DefaultSeenTTL bounds how long accepted keys survive without new batches
	DefaultSeenTTL = 7 * 24 * time.Hour
)

// Storage Constants
const (
	// DefaultArchivePrefix prefixes run output keys in the archive bucket
	DefaultArchivePrefix = "dedup/"
)
