package instance

import (
	"os"

	"github.com/seoulmarket/marketplace-backend/pkg/env"
)

const fallbackID = "local"

// GetID identifies this process in logs and lock ownership. MARKET_INSTANCE_ID
// wins, then the platform DYNO name, then the hostname.
func GetID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = fallbackID
	}
	return env.Get("MARKET_INSTANCE_ID", env.Get("DYNO", host))
}
