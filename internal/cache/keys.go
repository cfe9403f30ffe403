package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func TokenUsageKey(jobID uuid.UUID) string {
	return fmt.Sprintf("usage:job:%s", jobID)
}

func TotalTokensKey() string {
	return "usage:total_tokens"
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
