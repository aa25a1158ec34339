package collector

import (
  "context"
  "errors"
  "sync"
  "time"

  "github.com/robertof/go-radoneye-reader/collector/model"
  "github.com/rs/zerolog/log"
)

type Acquisition interface {
  Acquire(ctx context.Context) (model.Result, error)
}

// Recurring repeats acquisitions on an interval and keeps the latest accepted result.
// Acquisitions never overlap.
type Recurring struct {
  acquirer Acquisition

  // Called with every accepted result, from the collection goroutine.
  OnResult func(ctx context.Context, res model.Result)

  mu sync.Mutex
  latest model.Result
  collectionTime time.Time
  failures int

  started bool
}

func NewRecurring(a Acquisition) *Recurring {
  return &Recurring{
    acquirer: a,
  }
}

func (s *Recurring) Update(res model.Result) {
  s.mu.Lock()
  defer s.mu.Unlock()

  if res.Error != nil {
    panic("attempted to store a failed result")
  }

  s.latest = res
  s.collectionTime = time.Now()
  s.failures = 0
}

// Latest returns the last accepted result, or false if there is none yet.
func (s *Recurring) Latest() (model.Result, time.Time, bool) {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.latest, s.collectionTime, !s.collectionTime.IsZero()
}

// ConsecutiveFailures is the number of failed collections since the last accepted result.
func (s *Recurring) ConsecutiveFailures() int {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.failures
}

func (s *Recurring) collect(ctx context.Context) {
  res, err := s.acquirer.Acquire(ctx)

  if err != nil {
    if errors.Is(err, ErrCanceled) {
      return
    }

    s.mu.Lock()
    s.failures += 1
    failures := s.failures
    s.mu.Unlock()

    log.Warn().
      Err(err).
      Int("ConsecutiveFailures", failures).
      Msg("Collection failed, keeping previous reading")

    return
  }

  s.Update(res)

  if s.OnResult != nil {
    s.OnResult(ctx, res)
  }
}

// Start collects immediately and then every interval until ctx is done.
func (s *Recurring) Start(ctx context.Context, interval time.Duration) {
  if s.started {
    panic("attempted to call collector.Recurring.Start() twice")
  }

  s.started = true

  log.Info().
    Dur("Interval", interval).
    Msg("Starting recurring collector")

  for {
    s.collect(ctx)

    select {
    case <-ctx.Done():
      log.Info().Msg("Recurring collector is shutting down")
      return
    case <-time.After(interval):
      log.Trace().Dur("Interval", interval).Msg("Recurring collector tick: collecting...")
    }
  }
}
