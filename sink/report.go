// Package sink renders acquired readings and hands them to their destinations.
package sink

import (
  "context"
  "fmt"
  "strconv"
  "time"

  "github.com/robertof/go-radoneye-reader/collector/model"
  "github.com/robertof/go-radoneye-reader/device"
)

// AbsentMarker stands in for averages the sensor has not collected yet.
const AbsentMarker = "-"

type Unit string

const (
  UnitBqM3 Unit = "Bq/m^3"
  UnitPCiL Unit = "pCi/L"
)

type Sink interface {
  Publish(ctx context.Context, r Report) error
}

// Report is a reading expressed in the unit selected for output.
type Report struct {
  Identity device.Identity
  Reading device.Reading
  Unit Unit
  Time time.Time

  Value float64
  DayAverage float64
  MonthAverage float64
  HasDayAverage bool
  HasMonthAverage bool
}

func NewReport(res model.Result, unit Unit) Report {
  r := Report{
    Identity: res.Identity,
    Reading: res.Reading,
    Unit: unit,
    Time: res.Time,
    HasDayAverage: res.Reading.HasDayAverage,
    HasMonthAverage: res.Reading.HasMonthAverage,
  }

  if r.Time.IsZero() {
    r.Time = time.Now()
  }

  switch unit {
  case UnitPCiL:
    r.Value = res.Reading.ConcentrationPCiL
    r.DayAverage = res.Reading.DayAverage / device.BqPerPCi
    r.MonthAverage = res.Reading.MonthAverage / device.BqPerPCi
  default:
    r.Unit = UnitBqM3
    r.Value = res.Reading.ConcentrationBqM3
    r.DayAverage = res.Reading.DayAverage
    r.MonthAverage = res.Reading.MonthAverage
  }

  if !r.HasDayAverage {
    r.DayAverage = 0
  }

  if !r.HasMonthAverage {
    r.MonthAverage = 0
  }

  return r
}

// Format renders v in the report's unit: two decimals for pCi/L, shortest form for Bq/m^3.
func (r Report) Format(v float64) string {
  if r.Unit == UnitPCiL {
    return fmt.Sprintf("%0.2f", v)
  }

  return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r Report) FormattedValue() string {
  return r.Format(r.Value)
}

func (r Report) FormattedDayAverage() string {
  if !r.HasDayAverage {
    return AbsentMarker
  }

  return r.Format(r.DayAverage)
}

func (r Report) FormattedMonthAverage() string {
  if !r.HasMonthAverage {
    return AbsentMarker
  }

  return r.Format(r.MonthAverage)
}
