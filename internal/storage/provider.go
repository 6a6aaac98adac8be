package storage

import "animrender/internal/ports"

// Provider is the storage contract used by the publisher and health checks.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
