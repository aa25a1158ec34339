package collector

import (
  "bytes"
  "context"
  "errors"
  "fmt"
  "net"
  "sync"
  "time"

  "github.com/robertof/go-radoneye-reader/ble"
  "github.com/robertof/go-radoneye-reader/device"
  "github.com/robertof/go-radoneye-reader/device/radoneye"
  "github.com/rs/zerolog"
  "github.com/rs/zerolog/log"
)

const DefaultScanTimeout = 10 * time.Second

// Scanner delivers advertisements to onAdvertisement until it returns true or ctx is done.
// *ble.Handle implements it.
type Scanner interface {
  Scan(ctx context.Context, onAdvertisement func(ble.Advertisement) bool) error
}

type ResolverOptions struct {
  // Address as given by the user. May be empty or malformed.
  Addr string
  Variant device.Variant
  HasVariant bool

  ScanTimeout time.Duration
  Logger *zerolog.Logger
}

// Resolver determines which sensor to talk to, either from user input or by scanning.
type Resolver struct {
  scanner Scanner
  opts ResolverOptions
  log zerolog.Logger
}

func NewResolver(scanner Scanner, opts ResolverOptions) *Resolver {
  if opts.ScanTimeout <= 0 {
    opts.ScanTimeout = DefaultScanTimeout
  }

  r := &Resolver{
    scanner: scanner,
    opts: opts,
    log: log.Logger,
  }

  if opts.Logger != nil {
    r.log = *opts.Logger
  }

  return r
}

// Resolve trusts a well-formed address together with a variant as-is. Anything less falls
// back to a scan for the first advertiser carrying the RadonEye signature; a well-formed
// address without a variant restricts that scan to the address.
func (r *Resolver) Resolve(ctx context.Context) (device.Identity, error) {
  var only net.HardwareAddr

  if r.opts.Addr != "" {
    addr, err := device.ParseAddr(r.opts.Addr)

    switch {
    case err != nil:
      r.log.Warn().Err(err).Msg("Ignoring malformed device address")
    case r.opts.HasVariant:
      return device.Identity{Addr: addr, Variant: r.opts.Variant}, nil
    default:
      only = addr
    }
  }

  r.log.Info().
    Stringer("Addr", only).
    Dur("ScanTimeout", r.opts.ScanTimeout).
    Msg("Device address and type not fully specified, reverting to auto-scan")

  return r.scan(ctx, only)
}

func (r *Resolver) scan(ctx context.Context, only net.HardwareAddr) (id device.Identity, err error) {
  scanCtx, cancel := context.WithTimeout(ctx, r.opts.ScanTimeout)
  defer cancel()

  var (
    mu sync.Mutex
    found bool
  )

  err = r.scanner.Scan(scanCtx, func(a ble.Advertisement) bool {
    variant, ok := radoneye.MatchAdvertisement(a)

    if !ok {
      return false
    }

    addr, err := net.ParseMAC(a.Addr().String())

    if err != nil {
      r.log.Debug().Err(err).Str("Addr", a.Addr().String()).Msg("Skipping advertiser with bad address")
      return false
    }

    if only != nil && !bytes.Equal(only, addr) {
      r.log.Debug().Stringer("Addr", addr).Msg("Skipping RadonEye device with different address")
      return false
    }

    mu.Lock()
    defer mu.Unlock()

    if !found {
      found = true
      id = device.Identity{Addr: addr, Variant: variant}

      r.log.Debug().
        Stringer("Identity", id).
        Str("LocalName", a.LocalName()).
        Int("RSSI", a.RSSI()).
        Msg("Found RadonEye device")
    }

    return true
  })

  mu.Lock()
  defer mu.Unlock()

  if found {
    return id, nil
  }

  if ctx.Err() != nil {
    return id, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
  }

  if err != nil && !errors.Is(err, context.DeadlineExceeded) {
    return id, fmt.Errorf("%w: scan failed: %w", ErrDeviceNotFound, err)
  }

  return id, fmt.Errorf("%w within %v", ErrDeviceNotFound, r.opts.ScanTimeout)
}
