package sink

import (
  "context"

  influxdb2 "github.com/influxdata/influxdb-client-go/v2"
  "github.com/influxdata/influxdb-client-go/v2/api"
  "github.com/influxdata/influxdb-client-go/v2/api/write"
  "github.com/pkg/errors"
)

const influxMeasurement = "radon"

type InfluxOptions struct {
  URL string
  Token string
  Org string
  Bucket string
}

// InfluxDB writes every report as a single point using the blocking write API.
type InfluxDB struct {
  client influxdb2.Client
  writer api.WriteAPIBlocking
}

func NewInfluxDB(opts InfluxOptions) *InfluxDB {
  client := influxdb2.NewClient(opts.URL, opts.Token)

  return &InfluxDB{
    client: client,
    writer: client.WriteAPIBlocking(opts.Org, opts.Bucket),
  }
}

// Point builds the point for r. Values are always stored in Bq/m^3 regardless of the display unit.
func Point(r Report) *write.Point {
  tags := map[string]string{
    "address": r.Identity.Address(),
    "key": r.Identity.Key(),
    "variant": r.Identity.Variant.String(),
  }

  fields := map[string]interface{}{
    "bq_m3": r.Reading.ConcentrationBqM3,
    "pci_l": r.Reading.ConcentrationPCiL,
    "pulse_count": int64(r.Reading.PulseCount),
    "pulse_count_previous": int64(r.Reading.PulseCountPrevious),
  }

  if r.Reading.HasDayAverage {
    fields["day_average_bq_m3"] = r.Reading.DayAverage
  }

  if r.Reading.HasMonthAverage {
    fields["month_average_bq_m3"] = r.Reading.MonthAverage
  }

  return influxdb2.NewPoint(influxMeasurement, tags, fields, r.Time)
}

func (i *InfluxDB) Publish(ctx context.Context, r Report) error {
  if err := i.writer.WritePoint(ctx, Point(r)); err != nil {
    return errors.Wrap(err, "failed to write point")
  }

  return nil
}

func (i *InfluxDB) Close() {
  i.client.Close()
}
