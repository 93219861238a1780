package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Five fields, minute first. asynq's scheduler reads the same format.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func parseCron(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// NextCronTime returns the first run of expr strictly after from, in UTC.
func NextCronTime(expr string, from time.Time) (time.Time, error) {
	schedule, err := parseCron(expr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from.UTC()), nil
}

func ValidateCronExpr(expr string) error {
	_, err := parseCron(expr)
	return err
}
