package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sleep waits for d or until ctx is done. It stands in for the round trips
// the demo flows simulate.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// randomCode returns n random lowercase hex characters.
func randomCode(n int) string {
	var b strings.Builder
	for b.Len() < n {
		id := uuid.New()
		b.WriteString(strings.ReplaceAll(id.String(), "-", ""))
	}
	return b.String()[:n]
}
