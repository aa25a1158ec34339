package ble

import (
  "context"
  "errors"
  "fmt"
  "sync/atomic"

  "github.com/go-ble/ble"
  "github.com/rs/zerolog/log"
)

func WrapContextWithSigHandler(ctx context.Context, cancel func()) context.Context {
  return ble.WithSigHandler(ctx, cancel)
}

// ScanAll performs a scan until ctx is done and passes every advertisement to onDevice.
func (h *Handle) ScanAll(ctx context.Context, onDevice func(Advertisement)) error {
  err := h.dev.Scan(ctx, true, onDevice)

  if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
    return fmt.Errorf("failed to initiate scan: %w", err)
  }

  return nil
}

// Scan passes advertisements to onAdvertisement until it accepts one by returning true,
// which ends the scan with a nil error. Otherwise the scan runs until ctx is done and
// returns the context error.
func (h *Handle) Scan(
  parentCtx context.Context,
  onAdvertisement func(Advertisement) bool,
) error {
  ctx, cancel := context.WithCancel(parentCtx)
  defer cancel()

  // the stack may keep delivering queued advertisements after we're done.
  var accepted atomic.Bool

  err := h.dev.Scan(ctx, false, func(a Advertisement) {
    if accepted.Load() || ctx.Err() != nil {
      return
    }

    log.Trace().
      Str("Addr", a.Addr().String()).
      Str("LocalName", a.LocalName()).
      Int("RSSI", a.RSSI()).
      Msg("ble: received advertisement")

    if onAdvertisement(a) {
      accepted.Store(true)
      cancel()
    }
  })

  if accepted.Load() {
    return nil
  }

  if parentErr := parentCtx.Err(); parentErr != nil {
    return parentErr
  }

  if err != nil {
    return fmt.Errorf("failed to initiate scan: %w", err)
  }

  return nil
}
