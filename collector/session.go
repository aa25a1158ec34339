package collector

import (
  "context"
  "fmt"
  "net"
  "strconv"
  "sync"
  "time"

  "github.com/robertof/go-radoneye-reader/ble"
  "github.com/robertof/go-radoneye-reader/device"
  "github.com/robertof/go-radoneye-reader/device/radoneye"
  "github.com/rs/zerolog"
  "github.com/rs/zerolog/log"
)

const (
  DefaultConnectTimeout = 10 * time.Second
  DefaultNotifyTimeout = 10 * time.Second
)

// Dialer opens GATT connections. *ble.Handle implements it.
type Dialer interface {
  Connect(ctx context.Context, addr net.HardwareAddr) (ble.Conn, error)
}

type State uint8

const (
  StateIdle State = iota
  StateConnecting
  StateCharacteristicLookup
  StateAwaitingData
  StateDecoded
  StateFailed
  StateClosed
)

func (s State) String() string {
  switch s {
  case StateIdle:
    return "Idle"
  case StateConnecting:
    return "Connecting"
  case StateCharacteristicLookup:
    return "CharacteristicLookup"
  case StateAwaitingData:
    return "AwaitingData"
  case StateDecoded:
    return "Decoded"
  case StateFailed:
    return "Failed"
  case StateClosed:
    return "Closed"
  default:
    panic("unknown session state: " + strconv.Itoa(int(s)))
  }
}

type SessionOptions struct {
  ConnectTimeout time.Duration
  NotifyTimeout time.Duration
  Logger *zerolog.Logger
}

func (o SessionOptions) withDefaults() SessionOptions {
  if o.ConnectTimeout <= 0 {
    o.ConnectTimeout = DefaultConnectTimeout
  }

  if o.NotifyTimeout <= 0 {
    o.NotifyTimeout = DefaultNotifyTimeout
  }

  return o
}

// Session performs a single measurement exchange over one connection. It reads at most
// one frame and always releases the connection before returning.
type Session struct {
  dialer Dialer
  identity device.Identity
  opts SessionOptions
  log zerolog.Logger

  mu sync.Mutex
  state State
}

func NewSession(dialer Dialer, identity device.Identity, opts SessionOptions) *Session {
  s := &Session{
    dialer: dialer,
    identity: identity,
    opts: opts.withDefaults(),
    log: log.Logger,
  }

  if opts.Logger != nil {
    s.log = *opts.Logger
  }

  s.log = s.log.With().Stringer("Identity", identity).Logger()

  return s
}

func (s *Session) State() State {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.state
}

func (s *Session) setState(state State) {
  s.mu.Lock()
  prev := s.state
  s.state = state
  s.mu.Unlock()

  s.log.Trace().Stringer("From", prev).Stringer("To", state).Msg("session: state transition")
}

// ReadRaw returns the undecoded measurement frame.
func (s *Session) ReadRaw(ctx context.Context) ([]byte, error) {
  var raw []byte

  err := s.run(ctx, func(frame []byte) error {
    raw = frame
    return nil
  })

  return raw, err
}

// Read returns the decoded measurement.
func (s *Session) Read(ctx context.Context) (r device.Reading, err error) {
  err = s.run(ctx, func(frame []byte) error {
    reading, err := radoneye.Decode(frame, s.identity.Variant)

    if err != nil {
      return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
    }

    s.setState(StateDecoded)
    r = reading

    return nil
  })

  return r, err
}

func (s *Session) run(ctx context.Context, onFrame func([]byte) error) (err error) {
  s.mu.Lock()
  if s.state != StateIdle {
    s.mu.Unlock()
    return fmt.Errorf("%w (state %v)", errSessionUsed, s.state)
  }
  s.mu.Unlock()

  defer func() {
    if err != nil {
      s.setState(StateFailed)
      s.log.Debug().Err(err).Msg("session: failed")
    }

    s.setState(StateClosed)
  }()

  profile, err := radoneye.ProfileFor(s.identity.Variant)

  if err != nil {
    return fmt.Errorf("%w: %w", ErrCharacteristicNotFound, err)
  }

  s.setState(StateConnecting)

  conn, err := s.connect(ctx)

  if err != nil {
    return err
  }

  x := exchange{
    session: s,
    conn: conn,
    profile: profile,
  }

  defer x.close()

  s.setState(StateCharacteristicLookup)

  if err := x.lookup(); err != nil {
    return err
  }

  s.setState(StateAwaitingData)

  frame, err := x.await(ctx)

  if err != nil {
    return err
  }

  s.log.Trace().Hex("Frame", frame).Msg("session: received measurement frame")

  return onFrame(frame)
}

func (s *Session) connect(ctx context.Context) (ble.Conn, error) {
  connCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
  defer cancel()

  conn, err := s.dialer.Connect(connCtx, s.identity.Addr)

  if err != nil {
    if ctx.Err() != nil {
      return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
    }

    return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
  }

  return conn, nil
}

// exchange holds the state of an open connection.
type exchange struct {
  session *Session
  conn ble.Conn
  profile radoneye.Profile

  command *ble.Characteristic
  data *ble.Characteristic

  subscribed bool
  indicate bool
}

func (x *exchange) disconnected() bool {
  select {
  case <-x.conn.Disconnected():
    return true
  default:
    return false
  }
}

// classify reports a failed GATT operation, preferring ErrDisconnected when the link is gone.
func (x *exchange) classify(kind error, op string, err error) error {
  if x.disconnected() {
    return fmt.Errorf("%w during %s: %w", ErrDisconnected, op, err)
  }

  return fmt.Errorf("%w: %s: %w", kind, op, err)
}

func (x *exchange) lookup() error {
  p, err := x.conn.DiscoverProfile(true)

  if err != nil {
    return x.classify(ErrCharacteristicNotFound, "profile discovery", err)
  }

  for _, svc := range p.Services {
    for _, char := range svc.Characteristics {
      switch {
      case char.UUID.Equal(x.profile.CommandCharacteristic):
        x.command = char
      case char.UUID.Equal(x.profile.DataCharacteristic):
        x.data = char
      }
    }
  }

  if x.command == nil {
    return fmt.Errorf("%w: command characteristic %v", ErrCharacteristicNotFound,
      x.profile.CommandCharacteristic)
  }

  if x.data == nil {
    return fmt.Errorf("%w: data characteristic %v", ErrCharacteristicNotFound,
      x.profile.DataCharacteristic)
  }

  return nil
}

func (x *exchange) await(ctx context.Context) ([]byte, error) {
  frames := make(chan []byte, 1)
  readErrs := make(chan error, 1)

  switch {
  case x.data.Property & (ble.CharNotify | ble.CharIndicate) != 0:
    x.indicate = x.data.Property & ble.CharNotify == 0

    err := x.conn.Subscribe(x.data, x.indicate, func(b []byte) {
      if len(b) == 0 || b[0] != x.profile.Command {
        x.session.log.Trace().Hex("Frame", b).Msg("session: ignoring unexpected notification")
        return
      }

      frame := make([]byte, len(b))
      copy(frame, b)

      select {
      case frames <- frame:
      default:
      }
    })

    if err != nil {
      return nil, x.classify(ErrCharacteristicNotFound, "subscribe", err)
    }

    x.subscribed = true

    if err := x.trigger(); err != nil {
      return nil, err
    }
  case x.data.Property & ble.CharRead != 0:
    if err := x.trigger(); err != nil {
      return nil, err
    }

    go func() {
      b, err := x.conn.ReadCharacteristic(x.data)

      if err != nil {
        readErrs <- err
        return
      }

      frames <- b
    }()
  default:
    return nil, fmt.Errorf("%w: data characteristic %v is neither notifiable nor readable",
      ErrCharacteristicNotFound, x.profile.DataCharacteristic)
  }

  timer := time.NewTimer(x.session.opts.NotifyTimeout)
  defer timer.Stop()

  select {
  case frame := <-frames:
    return frame, nil
  case err := <-readErrs:
    return nil, x.classify(ErrCharacteristicNotFound, "read", err)
  case <-x.conn.Disconnected():
    return nil, ErrDisconnected
  case <-timer.C:
    return nil, fmt.Errorf("%w after %v", ErrNotifyTimeout, x.session.opts.NotifyTimeout)
  case <-ctx.Done():
    return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
  }
}

func (x *exchange) trigger() error {
  // prefer acknowledged writes when the characteristic supports them.
  noRsp := x.command.Property & ble.CharWrite == 0 && x.command.Property & ble.CharWriteNR != 0

  if err := x.conn.WriteCharacteristic(x.command, []byte{x.profile.Command}, noRsp); err != nil {
    return x.classify(ErrCharacteristicNotFound, "write command", err)
  }

  return nil
}

func (x *exchange) close() {
  if x.subscribed && !x.disconnected() {
    if err := x.conn.Unsubscribe(x.data, x.indicate); err != nil {
      x.session.log.Debug().Err(err).Msg("session: failed to unsubscribe")
    }
  }

  if err := x.conn.CancelConnection(); err != nil {
    x.session.log.Debug().Err(err).Msg("session: failed to close connection")
  }
}

// SessionReader runs a fresh Session for every read.
type SessionReader struct {
  Dialer Dialer
  Options SessionOptions
}

func (r SessionReader) Read(ctx context.Context, id device.Identity) (device.Reading, error) {
  return NewSession(r.Dialer, id, r.Options).Read(ctx)
}
