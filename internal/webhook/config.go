package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattjoyce/palisade/internal/config"
)

// FromGlobalConfig converts config.WebhookConfig to the server's runtime Config.
// Parses the max body size; secret and tolerance belong to the Verifier and
// are consumed by NewVerifier instead.
func FromGlobalConfig(wc config.WebhookConfig) (Config, error) {
	maxBodySize, err := parseMaxBodySize(wc.MaxBodySize)
	if err != nil {
		return Config{}, fmt.Errorf("invalid max_body_size %q: %w", wc.MaxBodySize, err)
	}

	return Config{
		Listen:      wc.Listen,
		Path:        wc.Path,
		MaxBodySize: maxBodySize,
		Dedupe:      wc.Dedupe,
		DedupeTTL:   wc.DedupeTTL,
	}, nil
}

// parseMaxBodySize parses size strings like "1MB", "512KB", "2048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	// Handle unit suffixes (KB, MB, GB)
	upper := strings.ToUpper(size)
	multiplier := int64(1)

	if strings.HasSuffix(upper, "KB") {
		multiplier = 1024
		size = strings.TrimSuffix(upper, "KB")
	} else if strings.HasSuffix(upper, "MB") {
		multiplier = 1024 * 1024
		size = strings.TrimSuffix(upper, "MB")
	} else if strings.HasSuffix(upper, "GB") {
		multiplier = 1024 * 1024 * 1024
		size = strings.TrimSuffix(upper, "GB")
	}

	// Parse numeric value
	value, err := strconv.ParseInt(strings.TrimSpace(size), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result < 0 { // Check for overflow
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
