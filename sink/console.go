package sink

import (
  "context"
  "fmt"
  "io"
)

const consoleTimeFormat = "2006-01-02 [15:04:05]"

// Console prints reports in a human readable form, or just the value when Silent is set.
type Console struct {
  Out io.Writer
  Silent bool
}

func (c Console) Publish(ctx context.Context, r Report) error {
  if c.Silent {
    _, err := fmt.Fprintln(c.Out, r.FormattedValue())
    return err
  }

  prefix := fmt.Sprintf("%s - %s - ", r.Time.Format(consoleTimeFormat), r.Identity.Address())

  lines := []string{
    fmt.Sprintf("Radon Value: %s %s", r.FormattedValue(), r.Unit),
    fmt.Sprintf("Day Average: %s %s", r.FormattedDayAverage(), r.Unit),
    fmt.Sprintf("Month Average: %s %s", r.FormattedMonthAverage(), r.Unit),
    fmt.Sprintf("Pulse count present: %d", r.Reading.PulseCount),
    fmt.Sprintf("Pulse count old: %d", r.Reading.PulseCountPrevious),
  }

  for _, line := range lines {
    if _, err := fmt.Fprintln(c.Out, prefix + line); err != nil {
      return fmt.Errorf("console: %w", err)
    }
  }

  return nil
}
