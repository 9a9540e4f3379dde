package config

import (
	"os"
	"strconv"
	"strings"
)

// StrictClientQuantityCheck rejects a bunker operation whose client-submitted
// Final quantity/volume disagrees with the server-side recomputation.
// The server-computed values are always the ones persisted; disabling the flag
// only downgrades the mismatch from an error to a discarded hint.
//
// Set via env:
// - STRICT_CLIENT_QUANTITY_CHECK=false (default true)
func StrictClientQuantityCheck() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_CLIENT_QUANTITY_CHECK")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// LowAvailabilityWarningPercent is the advisory threshold for the BDN
// availability listing: a BDN whose remaining quantity is at or below this
// percentage of its bunkered quantity is flagged with warning=true.
// Advisory only; the hard allocation rule is qty <= available.
//
// Set via env:
// - LOW_AVAILABILITY_WARNING_PERCENT=5 (default 5)
func LowAvailabilityWarningPercent() int {
	v := strings.TrimSpace(os.Getenv("LOW_AVAILABILITY_WARNING_PERCENT"))
	if v == "" {
		return 5
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 100 {
		return 5
	}
	return n
}
