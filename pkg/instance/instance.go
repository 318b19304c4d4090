package instance

import (
	"os"

	"github.com/medok/medok-backend/pkg/env"
)

const fallbackID = "medok-worker"

// ID names this process for lock ownership and logs. MEDOK_WORKER_ID wins,
// then the hostname (the pod name on Kubernetes).
func ID() string {
	if id := env.Get("MEDOK_WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
