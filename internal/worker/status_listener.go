package worker

import (
	"context"

	"github.com/ticketshield/citation-intake/internal/service"
)

// StartStatusListener starts the change feed detector in the background.
func StartStatusListener(ctx context.Context, detector *service.StatusChangeDetector) {
	if detector == nil {
		return
	}
	detector.Start(ctx)
}
