package tasks

import (
	"context"
	"fmt"

	"github.com/securepulse/securepulse/pkg/logger"
)

const PollAlertsTask = "poll_alerts"

// PollAlerts fetches new alerts from the SIEM. No SIEM integration exists
// yet, so every run reports zero alerts.
func PollAlerts(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	logger.InfoContext(ctx, "Polling alerts from Wazuh...")

	var alerts []string
	return fmt.Sprintf("Polled %d alerts", len(alerts)), nil
}
