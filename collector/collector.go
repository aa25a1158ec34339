package collector

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/robertof/go-radoneye-reader/collector/model"
  "github.com/robertof/go-radoneye-reader/device"
  "github.com/rs/zerolog"
  "github.com/rs/zerolog/log"
)

const (
  DefaultMaxRetries = 3
  DefaultRetryDelay = 5 * time.Second
)

type IdentityResolver interface {
  Resolve(ctx context.Context) (device.Identity, error)
}

type Reader interface {
  Read(ctx context.Context, id device.Identity) (device.Reading, error)
}

type AcquisitionOptions struct {
  // Attempts after the first one.
  MaxRetries int
  // Constant pause between attempts, giving the radio and the sensor time to settle.
  RetryDelay time.Duration
  Logger *zerolog.Logger
}

// Acquirer turns unreliable single reads into either a plausible reading or a terminal
// failure.
type Acquirer struct {
  resolver IdentityResolver
  reader Reader
  opts AcquisitionOptions
  log zerolog.Logger

  // replaced in tests.
  after func(time.Duration) <-chan time.Time
}

func NewAcquirer(resolver IdentityResolver, reader Reader, opts AcquisitionOptions) *Acquirer {
  if opts.MaxRetries < 0 {
    opts.MaxRetries = 0
  }

  a := &Acquirer{
    resolver: resolver,
    reader: reader,
    opts: opts,
    log: log.Logger,
    after: time.After,
  }

  if opts.Logger != nil {
    a.log = *opts.Logger
  }

  return a
}

type acquisitionState uint8

const (
  stateAttempting acquisitionState = iota
  stateSucceeded
  stateFailed
)

// Acquire returns the first plausible reading out of at most MaxRetries + 1 attempts.
// Failures of single attempts are only logged. Once attempts are exhausted the error wraps
// ErrAcquisitionFailed and the cause of the last failure; cancellation of ctx returns
// ErrCanceled right away.
func (a *Acquirer) Acquire(ctx context.Context) (model.Result, error) {
  var res model.Result

  state := stateAttempting
  attempt := 0

  for {
    switch state {
    case stateAttempting:
      attempt += 1
      res = a.attempt(ctx, attempt)

      switch {
      case res.Error == nil:
        state = stateSucceeded
      case errors.Is(res.Error, ErrCanceled):
        return res, res.Error
      case attempt > a.opts.MaxRetries:
        state = stateFailed
      default:
        a.log.Debug().
          Err(res.Error).
          Int("Attempt", attempt).
          Int("RetriesLeft", a.opts.MaxRetries - attempt + 1).
          Dur("Delay", a.opts.RetryDelay).
          Msgf("Failed, trying again (%d)...", attempt)

        if a.opts.RetryDelay > 0 {
          select {
          case <-ctx.Done():
            res.Error = fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
            return res, res.Error
          case <-a.after(a.opts.RetryDelay):
          }
        }
      }
    case stateSucceeded:
      a.log.Debug().
        Stringer("Identity", res.Identity).
        Stringer("Reading", res.Reading).
        Int("Attempt", attempt).
        Msg("Successfully collected reading")

      return res, nil
    case stateFailed:
      a.log.Debug().Err(res.Error).Int("Attempts", attempt).Msg("Value could not be obtained")

      return res, fmt.Errorf("%w after %d attempts: %w", ErrAcquisitionFailed, attempt, res.Error)
    }
  }
}

func (a *Acquirer) attempt(ctx context.Context, n int) (res model.Result) {
  res.Attempt = n

  defer func() {
    res.Time = time.Now()

    // collapse whatever a canceled context caused into a single error kind.
    if res.Error != nil && ctx.Err() != nil && !errors.Is(res.Error, ErrCanceled) {
      res.Error = fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
    }
  }()

  id, err := a.resolver.Resolve(ctx)

  if err != nil {
    res.Error = err
    return res
  }

  res.Identity = id

  reading, err := a.reader.Read(ctx, id)

  if err != nil {
    res.Error = err
    return res
  }

  if !reading.Plausible() {
    res.Error = fmt.Errorf("%w: %.2f Bq/m^3 (want %v..%v)", ErrImplausibleReading,
      reading.ConcentrationBqM3, device.MinPlausibleBqM3, device.MaxPlausibleBqM3)
    return res
  }

  res.Reading = reading

  return res
}
