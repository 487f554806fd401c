package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const (
	CleanupJobInterval    = 5 * time.Minute
	AuditFlushInterval    = 2 * time.Second
	AuditReclaimIdle      = time.Minute
	AuditEnqueueTimeout   = 5 * time.Second
	AuditConsumerGroup    = "audit-writers"
	AuditEventBufferSize  = 100
	AuditSubscribeTimeout = 5 * time.Second
)

// Pairing
const (
	PairingCodeTTL         = 10 * time.Minute
	PairingCodeAttempts    = 10
	PairingRequestAttempts = 3
)

// Resource limits
const (
	MaxAlarmsPerOwner   = 20
	AuditDetailsMaxLen  = 200
	DefaultListLimit    = 50
	MaxAuditListLimit   = 200
	BriefingHistorySize = 20
)
