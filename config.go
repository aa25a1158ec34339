package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robertof/go-radoneye-reader/ble"
	"github.com/robertof/go-radoneye-reader/collector"
	"github.com/robertof/go-radoneye-reader/device"
	"github.com/robertof/go-radoneye-reader/sink"
)

var errUsage = errors.New("invalid usage")

type config struct {
  ConfigPath string
  Verbose, Silent, Trace bool
  Becquerel bool

  Address string
  Variant string
  BluetoothDeviceId int
  BluetoothConnParams ble.ConnParams

  MaxRetries int
  RetryDelay time.Duration
  ScanTimeout, ConnectTimeout, NotifyTimeout time.Duration

  DiscoverDevices bool
  CollectionInterval time.Duration
  BindAddress string

  MQTT bool
  MQTTServer string
  MQTTPort int
  MQTTUser, MQTTPassword string
  MQTTHomeAssistant bool

  Influx sink.InfluxOptions
}

func (c config) Unit() sink.Unit {
  if c.Becquerel {
    return sink.UnitBqM3
  }

  return sink.UnitPCiL
}

// ResolverOptions returns the identity hint given on the command line. The type is only
// considered together with a well-formed address; otherwise the device is discovered by scan.
func (c config) ResolverOptions() (collector.ResolverOptions, error) {
  opts := collector.ResolverOptions{
    Addr: c.Address,
    ScanTimeout: c.ScanTimeout,
  }

  if c.Variant == "" {
    return opts, nil
  }

  if _, err := device.ParseAddr(c.Address); err != nil {
    return opts, nil
  }

  v, err := device.ParseVariant(c.Variant)
  if err != nil {
    return opts, err
  }

  opts.Variant, opts.HasVariant = v, true

  return opts, nil
}

// IgnoresVariant reports whether -t was given but cannot be used for lack of a valid address.
func (c config) IgnoresVariant() bool {
  if c.Variant == "" {
    return false
  }

  _, err := device.ParseAddr(c.Address)

  return err != nil
}

func newFlagSet(cfg *config, output io.Writer) *flag.FlagSet {
  fs := flag.NewFlagSet("radoneye-reader", flag.ContinueOnError)
  fs.SetOutput(output)

  cfg.BluetoothConnParams = ble.ConnParamsDefault

  fs.StringVar(&cfg.ConfigPath, "config", "", "YAML file with flag values (flags given on the command line win)")

  fs.StringVar(&cfg.Address, "a", "", "Bluetooth Address (AA:BB:CC:DD:EE:FF format)")
  fs.StringVar(&cfg.Variant, "t", "", "type 0 for RD200 < 2022 or 1 for >= 2022 models")
  fs.IntVar(&cfg.BluetoothDeviceId, "i", 0, "Bluetooth (HCI) device ID, e.g. 0, 1... for hci0, hci1...")
  fs.Var(&cfg.BluetoothConnParams, "bluetooth-connection-params", "Bluetooth connection parameters (one of 'default' or 'power-saving')")

  for _, name := range []string{"b", "becquerel"} {
    fs.BoolVar(&cfg.Becquerel, name, false, "Display radon value in Becquerel (Bq/m^3) unit")
  }

  for _, name := range []string{"v", "verbose"} {
    fs.BoolVar(&cfg.Verbose, name, false, "Verbose mode")
  }

  for _, name := range []string{"s", "silent"} {
    fs.BoolVar(&cfg.Silent, name, false, "Output only radon value (without unit and timestamp)")
  }

  fs.BoolVar(&cfg.Trace, "trace", false, "Enable trace logs")

  fs.IntVar(&cfg.MaxRetries, "retries", collector.DefaultMaxRetries, "Max number of retries after the first attempt")
  fs.DurationVar(&cfg.RetryDelay, "retry-delay", collector.DefaultRetryDelay, "Delay between attempts")
  fs.DurationVar(&cfg.ScanTimeout, "scan-timeout", collector.DefaultScanTimeout, "Timeout for the device scan (per attempt)")
  fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", collector.DefaultConnectTimeout, "Timeout for connecting to the device")
  fs.DurationVar(&cfg.NotifyTimeout, "timeout", collector.DefaultNotifyTimeout, "Timeout for the device to answer the measurement request")

  fs.BoolVar(&cfg.DiscoverDevices, "discover", false, "Discover available RadonEye devices and quit")
  fs.DurationVar(&cfg.CollectionInterval, "interval", 0, "Collect on this interval and export Prometheus metrics instead of reading once")
  fs.StringVar(&cfg.BindAddress, "bind", "localhost:9102", "Where the exporter will bind to (with -interval)")

  for _, name := range []string{"m", "mqtt"} {
    fs.BoolVar(&cfg.MQTT, name, false, "Also send radon value to a MQTT server")
  }

  fs.StringVar(&cfg.MQTTServer, "ms", "", "MQTT server URL or IP address")
  fs.IntVar(&cfg.MQTTPort, "mp", sink.DefaultMQTTPort, "MQTT server service port")
  fs.StringVar(&cfg.MQTTUser, "mu", "", "MQTT server username")
  fs.StringVar(&cfg.MQTTPassword, "mw", "", "MQTT server password")
  fs.BoolVar(&cfg.MQTTHomeAssistant, "ma", false, "Switch to Home Assistant MQTT output (Default: EmonCMS)")

  fs.StringVar(&cfg.Influx.URL, "influx-url", "", "InfluxDB server URL; enables the InfluxDB output")
  fs.StringVar(&cfg.Influx.Token, "influx-token", "", "InfluxDB API token")
  fs.StringVar(&cfg.Influx.Org, "influx-org", "", "InfluxDB organization")
  fs.StringVar(&cfg.Influx.Bucket, "influx-bucket", "", "InfluxDB bucket")

  return fs
}

// applyConfigFile sets every flag named in the YAML file at path, unless it was given explicitly.
func applyConfigFile(fs *flag.FlagSet, path string) error {
  data, err := os.ReadFile(path)
  if err != nil {
    return fmt.Errorf("failed to read config file: %w", err)
  }

  values := make(map[string]any)

  if err := yaml.Unmarshal(data, &values); err != nil {
    return fmt.Errorf("failed to parse config file: %w", err)
  }

  explicit := make(map[string]bool)
  fs.Visit(func(f *flag.Flag) {
    explicit[f.Name] = true
  })

  for name, value := range values {
    if fs.Lookup(name) == nil {
      return fmt.Errorf("unknown option %q in %s", name, path)
    }

    if explicit[name] {
      continue
    }

    if err := fs.Set(name, fmt.Sprint(value)); err != nil {
      return fmt.Errorf("option %q in %s: %w", name, path, err)
    }
  }

  return nil
}

func (c config) validate() error {
  if c.MQTT && (c.MQTTServer == "" || c.MQTTUser == "" || c.MQTTPassword == "") {
    return fmt.Errorf("%w: -mqtt requires -ms, -mu and -mw", errUsage)
  }

  if c.MaxRetries < 0 {
    return fmt.Errorf("%w: -retries must not be negative", errUsage)
  }

  if c.Influx.URL != "" && (c.Influx.Org == "" || c.Influx.Bucket == "") {
    return fmt.Errorf("%w: -influx-url requires -influx-org and -influx-bucket", errUsage)
  }

  if c.CollectionInterval < 0 {
    return fmt.Errorf("%w: -interval must not be negative", errUsage)
  }

  if _, err := c.ResolverOptions(); err != nil {
    return fmt.Errorf("%w: %v", errUsage, err)
  }

  return nil
}

func parseArgs(args []string, output io.Writer) (config, error) {
  var cfg config

  fs := newFlagSet(&cfg, output)

  // The flag set reports its own parse errors.
  if err := fs.Parse(args); err != nil {
    if errors.Is(err, flag.ErrHelp) {
      return cfg, err
    }

    return cfg, fmt.Errorf("%w: %v", errUsage, err)
  }

  if cfg.ConfigPath != "" {
    if err := applyConfigFile(fs, cfg.ConfigPath); err != nil {
      return cfg, err
    }
  }

  if err := cfg.validate(); err != nil {
    fmt.Fprintln(output, "Error:", err)
    fs.Usage()
    return cfg, err
  }

  return cfg, nil
}

func ParseArgs() config {
  cfg, err := parseArgs(os.Args[1:], os.Stderr)

  if errors.Is(err, flag.ErrHelp) {
    os.Exit(0)
  }

  if err != nil {
    if !errors.Is(err, errUsage) {
      fmt.Fprintln(os.Stderr, "Error:", err)
    }

    os.Exit(1)
  }

  return cfg
}
