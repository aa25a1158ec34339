package metrics

import (
  "time"

  "github.com/prometheus/client_golang/prometheus"

  "github.com/robertof/go-radoneye-reader/collector/model"
)

var (
  labels = []string{"address", "key"}

  descConcentration = prometheus.NewDesc(
    "radon_concentration_bq_m3",
    "Radon concentration reported by the sensor in Bq/m^3.",
    labels,
    nil,
  )

  descDayAverage = prometheus.NewDesc(
    "radon_day_average_bq_m3",
    "Radon concentration averaged over the last day in Bq/m^3.",
    labels,
    nil,
  )

  descMonthAverage = prometheus.NewDesc(
    "radon_month_average_bq_m3",
    "Radon concentration averaged over the last month in Bq/m^3.",
    labels,
    nil,
  )

  descPulseCount = prometheus.NewDesc(
    "radon_pulse_count",
    "Pulse count for the current measurement period.",
    labels,
    nil,
  )

  descConsecutiveFailures = prometheus.NewDesc(
    "radon_consecutive_failures",
    "Number of failed collections since the last accepted reading.",
    nil,
    nil,
  )
)

// CollectFunc returns the latest accepted result, when it was collected, and whether there is one.
type CollectFunc func() (model.Result, time.Time, bool)

// FailuresFunc returns the number of failed collections since the last accepted result.
type FailuresFunc func() int

type collector struct {
  CollectFunc
  failures FailuresFunc
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
  ch <- descConcentration
  ch <- descDayAverage
  ch <- descMonthAverage
  ch <- descPulseCount
  ch <- descConsecutiveFailures
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
  if c.failures != nil {
    ch <- prometheus.MustNewConstMetric(
      descConsecutiveFailures,
      prometheus.GaugeValue,
      float64(c.failures()),
    )
  }

  res, ts, ok := c.CollectFunc()

  if !ok {
    return
  }

  addr, key := res.Identity.Address(), res.Identity.Key()
  reading := res.Reading

  gauge := func(desc *prometheus.Desc, v float64) {
    m := prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, addr, key)
    ch <- prometheus.NewMetricWithTimestamp(ts, m)
  }

  gauge(descConcentration, reading.ConcentrationBqM3)

  if reading.HasDayAverage {
    gauge(descDayAverage, reading.DayAverage)
  }

  if reading.HasMonthAverage {
    gauge(descMonthAverage, reading.MonthAverage)
  }

  gauge(descPulseCount, float64(reading.PulseCount))
}

func RegisterCollector(f CollectFunc, failures FailuresFunc, reg prometheus.Registerer) {
  c := &collector{f, failures}

  reg.MustRegister(c)
}
