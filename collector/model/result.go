package model

import (
  "fmt"
  "time"

  "github.com/robertof/go-radoneye-reader/device"
)

// Result is the outcome of one acquisition attempt.
type Result struct {
  Identity device.Identity
  Reading device.Reading
  Error error

  Attempt int
  Time time.Time
}

func (c Result) String() string {
  if c.Error != nil {
    return fmt.Sprintf("result:error(attempt=%d, %v)", c.Attempt, c.Error)
  } else {
    return fmt.Sprintf("result:success(attempt=%d, %v, %v)", c.Attempt, c.Identity, c.Reading)
  }
}
