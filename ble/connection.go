package ble

import (
  "context"
  "net"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/rs/zerolog/log"
)

var (
  successfulConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "radoneye_ble_successful_connections_total",
  })
  failedConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "radoneye_ble_failed_connections_total",
  })
  disconnectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "radoneye_ble_disconnections_total",
  })
)

// Connect opens a GATT connection to addr. The caller owns the connection and must
// release it with CancelConnection().
func (h *Handle) Connect(ctx context.Context, addr net.HardwareAddr) (Conn, error) {
  c, err := h.dev.Dial(ctx, addr)

  if err != nil {
    failedConnectionsCounter.Inc()
    return nil, err
  }

  successfulConnectionsCounter.Inc()
  log.Debug().Stringer("Addr", addr).Msg("ble: successfully opened new connection to device")

  go func() {
    <-c.Disconnected()

    disconnectsCounter.Inc()
    log.Debug().Stringer("Addr", addr).Msg("ble: connection with device closed")
  }()

  return c, nil
}
