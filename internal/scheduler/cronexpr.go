package scheduler

import (
	"fmt"
)

// IntervalToCronExpr maps a polling interval in minutes onto a five-field
// cron expression. Intervals that divide evenly into hours or days become
// aligned expressions (top of the hour, midnight); everything else falls back
// to a minute step.
func IntervalToCronExpr(minutes int) (string, error) {
	switch {
	case minutes < 1:
		return "", fmt.Errorf("polling interval must be at least 1 minute, got %d", minutes)
	case minutes == 1:
		return "* * * * *", nil
	case minutes < 60:
		return fmt.Sprintf("*/%d * * * *", minutes), nil
	case minutes == 60:
		return "0 * * * *", nil
	case minutes == 1440:
		return "0 0 * * *", nil
	case minutes%1440 == 0:
		return fmt.Sprintf("0 0 */%d * *", minutes/1440), nil
	case minutes%60 == 0 && minutes < 1440:
		return fmt.Sprintf("0 */%d * * *", minutes/60), nil
	default:
		return fmt.Sprintf("*/%d * * * *", minutes), nil
	}
}
