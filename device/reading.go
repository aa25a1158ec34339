package device

import (
  "fmt"
  "strings"
)

const (
  // BqPerPCi converts between Bq/m^3 and pCi/L.
  BqPerPCi = 37.0

  MinPlausibleBqM3 = 0.0
  MaxPlausibleBqM3 = 2500.0
)

// Reading is one decoded measurement. All concentrations are in Bq/m^3 except
// ConcentrationPCiL. A sensor reports zero for averages it has not collected enough data
// for yet; those are kept as absent through the Has* flags.
type Reading struct {
  ConcentrationBqM3 float64
  ConcentrationPCiL float64
  DayAverage float64
  MonthAverage float64
  PulseCount uint16
  PulseCountPrevious uint16

  HasDayAverage bool
  HasMonthAverage bool
}

// NewReading builds a Reading from Bq/m^3 values, deriving pCi/L and turning zero averages
// into absent ones.
func NewReading(bqM3, dayAvg, monthAvg float64, pulses, previousPulses uint16) Reading {
  return Reading{
    ConcentrationBqM3: bqM3,
    ConcentrationPCiL: bqM3 / BqPerPCi,
    DayAverage: dayAvg,
    MonthAverage: monthAvg,
    PulseCount: pulses,
    PulseCountPrevious: previousPulses,
    HasDayAverage: dayAvg != 0,
    HasMonthAverage: monthAvg != 0,
  }
}

// Plausible reports whether the concentration is within the range the sensor can
// physically measure. Anything else comes from a garbled transfer.
func (r Reading) Plausible() bool {
  return r.ConcentrationBqM3 >= MinPlausibleBqM3 && r.ConcentrationBqM3 <= MaxPlausibleBqM3
}

func (r Reading) String() string {
  var fields []string

  if r.HasDayAverage {
    fields = append(fields, fmt.Sprintf("DayAverage=%.2f", r.DayAverage))
  }

  if r.HasMonthAverage {
    fields = append(fields, fmt.Sprintf("MonthAverage=%.2f", r.MonthAverage))
  }

  return fmt.Sprintf("Reading[Radon=%.2fBq/m3,Pulses=%d/%d,%v]",
    r.ConcentrationBqM3, r.PulseCount, r.PulseCountPrevious, strings.Join(fields, ","))
}
