package config

import "time"

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty, which selects the in-memory active store.
	DefaultDatabaseURL = ""

	// DefaultArchiveDSN is the SQLite file holding archived tasks.
	DefaultArchiveDSN = "tasktrail-archive.db"

	// DefaultLogFormat is the slog handler used when none is given.
	DefaultLogFormat = "json"

	// DefaultTokenTTL is the lifetime of tokens minted by the token command.
	DefaultTokenTTL = 24 * time.Hour

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server.
	DefaultShutdownTimeout = 10 * time.Second

	// NotificationChannel is the Redis pub/sub channel shared by all instances.
	NotificationChannel = "tasktrail:notifications"
)
