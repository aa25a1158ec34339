package sink

import (
  "context"
  "errors"
  "fmt"

  "github.com/rs/zerolog/log"
  "golang.org/x/sync/errgroup"
)

// Multi publishes to every sink concurrently and reports all failures together.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, r Report) error {
  var eg errgroup.Group
  errs := make([]error, len(m))

  for i, s := range m {
    i, s := i, s
    eg.Go(func() error {
      if err := s.Publish(ctx, r); err != nil {
        log.Error().Err(err).Msgf("Failed to publish to %T", s)
        errs[i] = fmt.Errorf("%T: %w", s, err)
      }

      return nil
    })
  }

  _ = eg.Wait()

  return errors.Join(errs...)
}
