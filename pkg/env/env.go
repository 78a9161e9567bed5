package env

import (
	"os"
	"strings"
)

// Prefix namespaces the few settings read before config.Load runs.
const Prefix = "GROVETRACE_"

// Get returns GROVETRACE_<key> when set, then the bare key, then fallback.
// Values are trimmed; blank values count as unset.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
