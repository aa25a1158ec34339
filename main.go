package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robertof/go-radoneye-reader/ble"
	"github.com/robertof/go-radoneye-reader/collector"
	"github.com/robertof/go-radoneye-reader/collector/model"
	"github.com/robertof/go-radoneye-reader/metrics"
	"github.com/robertof/go-radoneye-reader/sink"
	"github.com/robertof/go-radoneye-reader/utils"
)

func main() {
  zerolog.DurationFieldUnit = time.Second
  zerolog.TimeFieldFormat = time.RFC3339Nano

  log.Logger = log.Output(zerolog.ConsoleWriter{
    Out: os.Stderr,
    TimeFormat: "15:04:05.000",
  })

  cfg := ParseArgs()

  if cfg.Trace || os.Getenv("TRACE") != "" {
    zerolog.SetGlobalLevel(zerolog.TraceLevel)
  } else if (cfg.Verbose || os.Getenv("DEBUG") != "") && !cfg.Silent {
    zerolog.SetGlobalLevel(zerolog.DebugLevel)
  } else {
    zerolog.SetGlobalLevel(zerolog.ErrorLevel)
  }

  if cfg.DiscoverDevices {
    doDeviceDiscovery(cfg)
    return
  }

  os.Exit(run(cfg))
}

func run(cfg config) int {
  log.Debug().
    Str("Address", cfg.Address).
    Str("Type", cfg.Variant).
    Int("BluetoothDeviceID", cfg.BluetoothDeviceId).
    Str("Unit", string(cfg.Unit())).
    Msg("Starting with the specified configuration")

  bleHandle := initBle(cfg)
  defer bleHandle.Stop()

  ctx := ble.WrapContextWithSigHandler(context.WithCancel(context.Background()))

  acquirer, err := newAcquirer(cfg, bleHandle)
  if err != nil {
    log.Error().Err(err).Msg("Invalid configuration")
    return 1
  }

  out, closeSinks := newSinks(cfg)
  defer closeSinks()

  if cfg.CollectionInterval > 0 {
    return runExporter(ctx, cfg, acquirer, out)
  }

  return runOnce(ctx, cfg, acquirer, out)
}

func initBle(cfg config) *ble.Handle {
  // RadonEye names are only present in scan responses.
  bleHandle, err := ble.InitWithConnParams(cfg.BluetoothDeviceId, cfg.BluetoothConnParams, ble.FlagScanTypeActive)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  return bleHandle
}

func newAcquirer(cfg config, bleHandle *ble.Handle) (*collector.Acquirer, error) {
  resolverOpts, err := cfg.ResolverOptions()
  if err != nil {
    return nil, err
  }

  if cfg.IgnoresVariant() {
    log.Warn().
      Str("Address", cfg.Address).
      Str("Type", cfg.Variant).
      Msg("Ignoring device type without a valid device address")
  }

  reader := collector.SessionReader{
    Dialer: bleHandle,
    Options: collector.SessionOptions{
      ConnectTimeout: cfg.ConnectTimeout,
      NotifyTimeout: cfg.NotifyTimeout,
    },
  }

  return collector.NewAcquirer(
    collector.NewResolver(bleHandle, resolverOpts),
    reader,
    collector.AcquisitionOptions{
      MaxRetries: cfg.MaxRetries,
      RetryDelay: cfg.RetryDelay,
    },
  ), nil
}

func newSinks(cfg config) (sink.Multi, func()) {
  out := sink.Multi{sink.Console{Out: os.Stdout, Silent: cfg.Silent}}
  cleanup := func() {}

  if cfg.MQTT {
    out = append(out, sink.NewMQTT(sink.MQTTOptions{
      Server: cfg.MQTTServer,
      Port: cfg.MQTTPort,
      Username: cfg.MQTTUser,
      Password: cfg.MQTTPassword,
      HomeAssistant: cfg.MQTTHomeAssistant,
    }))
  }

  if cfg.Influx.URL != "" {
    influx := sink.NewInfluxDB(cfg.Influx)
    out = append(out, influx)
    cleanup = influx.Close
  }

  return out, cleanup
}

func runOnce(ctx context.Context, cfg config, acquirer *collector.Acquirer, out sink.Sink) int {
  res, err := acquirer.Acquire(ctx)

  if err != nil {
    ev := log.Error()

    if utils.ErrorIsAnyOf(err, collector.ErrCanceled, context.Canceled) {
      ev = log.Warn()
    }

    ev.Err(err).Msg("Value could not be obtained")
    fmt.Println("Failed...")

    return 1
  }

  log.Debug().Stringer("Result", res).Msg("Successfully collected reading")

  if err := out.Publish(ctx, sink.NewReport(res, cfg.Unit())); err != nil {
    log.Error().Err(err).Msg("Failed to publish reading")
    return 1
  }

  return 0
}

func runExporter(ctx context.Context, cfg config, acquirer *collector.Acquirer, out sink.Sink) int {
  coll := collector.NewRecurring(acquirer)
  coll.OnResult = func(ctx context.Context, res model.Result) {
    if err := out.Publish(ctx, sink.NewReport(res, cfg.Unit())); err != nil {
      log.Error().Err(err).Msg("Failed to publish reading")
    }
  }

  registry := prometheus.NewRegistry()

  ble.RegisterMetrics(registry)
  metrics.RegisterCollector(coll.Latest, coll.ConsecutiveFailures, registry)

  go coll.Start(ctx, cfg.CollectionInterval)

  log.Info().
    Str("ListenAddress", cfg.BindAddress).
    Msg("Starting Prometheus server")

  mux := http.NewServeMux()
  mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

  server := &http.Server{Addr: cfg.BindAddress, Handler: mux}

  go func() {
    <-ctx.Done()

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5 * time.Second)
    defer cancel()

    _ = server.Shutdown(shutdownCtx)
  }()

  if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
    log.Error().Err(err).Msg("Unable to bind on requested address")
    return 1
  }

  return 0
}
