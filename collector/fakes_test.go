package collector

import (
  "context"
  "errors"
  "net"
  "sync"

  ble_mod "github.com/go-ble/ble"
  "github.com/robertof/go-radoneye-reader/ble"
  "github.com/robertof/go-radoneye-reader/device"
  "github.com/robertof/go-radoneye-reader/device/radoneye"
)

var (
  currentFrame = []byte{
    0x40, 0x0c,
    0x23, 0x01,
    0xf0, 0x00,
    0x00, 0x00,
    0x00, 0x00,
    0x10, 0x00,
    0x09, 0x00,
  }

  legacyFrame = []byte{
    0x50, 0x10,
    0x00, 0x00, 0xc0, 0x3f,
    0x00, 0x00, 0x00, 0x40,
    0x00, 0x00, 0x00, 0x00,
    0x0c, 0x00,
    0x07, 0x00,
  }

  errRadio = errors.New("hci: command disallowed")
)

type FakeAdvertisement struct {
  name string
  services []ble_mod.UUID
  addr ble_mod.Addr
}

func (f FakeAdvertisement) LocalName() string { return f.name }
func (f FakeAdvertisement) ManufacturerData() []byte { return nil }
func (f FakeAdvertisement) ServiceData() []ble_mod.ServiceData { return nil }
func (f FakeAdvertisement) Services() []ble_mod.UUID { return f.services }
func (f FakeAdvertisement) OverflowService() []ble_mod.UUID { return nil }
func (f FakeAdvertisement) TxPowerLevel() int { return 0 }
func (f FakeAdvertisement) Connectable() bool { return true }
func (f FakeAdvertisement) SolicitedService() []ble_mod.UUID { return nil }
func (f FakeAdvertisement) RSSI() int { return -60 }
func (f FakeAdvertisement) Addr() ble_mod.Addr { return f.addr }

// fakeScanner replays advertisements, then blocks until the scan window closes.
type fakeScanner struct {
  mu sync.Mutex
  calls int

  advertisements []ble.Advertisement
  err error
}

func (s *fakeScanner) Scan(ctx context.Context, onAdvertisement func(ble.Advertisement) bool) error {
  s.mu.Lock()
  s.calls += 1
  s.mu.Unlock()

  for _, a := range s.advertisements {
    if onAdvertisement(a) {
      return nil
    }
  }

  if s.err != nil {
    return s.err
  }

  <-ctx.Done()
  return ctx.Err()
}

func (s *fakeScanner) Calls() int {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.calls
}

type fakeConn struct {
  mu sync.Mutex

  profile *ble_mod.Profile
  discoverErr error
  subscribeErr error
  writeErr error
  readErr error

  // sent through the notification handler (or returned by reads) once a command is written.
  reply []byte
  // the link drops as soon as a command is written.
  dropOnWrite bool

  handler ble.NotificationHandler
  writes [][]byte
  subscribes int
  unsubscribes int
  cancels int

  disconnected chan struct{}
  disconnectOnce sync.Once
}

func newFakeConn(profile *ble_mod.Profile, reply []byte) *fakeConn {
  return &fakeConn{
    profile: profile,
    reply: reply,
    disconnected: make(chan struct{}),
  }
}

func (c *fakeConn) disconnect() {
  c.disconnectOnce.Do(func() {
    close(c.disconnected)
  })
}

func (c *fakeConn) DiscoverProfile(force bool) (*ble.Profile, error) {
  if c.discoverErr != nil {
    return nil, c.discoverErr
  }

  return c.profile, nil
}

func (c *fakeConn) ReadCharacteristic(char *ble.Characteristic) ([]byte, error) {
  if c.readErr != nil {
    return nil, c.readErr
  }

  return c.reply, nil
}

func (c *fakeConn) WriteCharacteristic(char *ble.Characteristic, value []byte, noRsp bool) error {
  c.mu.Lock()
  c.writes = append(c.writes, append([]byte{}, value...))
  handler := c.handler
  c.mu.Unlock()

  if c.writeErr != nil {
    return c.writeErr
  }

  if c.dropOnWrite {
    c.disconnect()
    return nil
  }

  if handler != nil && c.reply != nil {
    go handler(c.reply)
  }

  return nil
}

func (c *fakeConn) Subscribe(char *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
  if c.subscribeErr != nil {
    return c.subscribeErr
  }

  c.mu.Lock()
  defer c.mu.Unlock()

  c.subscribes += 1
  c.handler = h

  return nil
}

func (c *fakeConn) Unsubscribe(char *ble.Characteristic, ind bool) error {
  c.mu.Lock()
  defer c.mu.Unlock()

  c.unsubscribes += 1
  c.handler = nil

  return nil
}

func (c *fakeConn) CancelConnection() error {
  c.mu.Lock()
  c.cancels += 1
  c.mu.Unlock()

  c.disconnect()

  return nil
}

func (c *fakeConn) Disconnected() <-chan struct{} {
  return c.disconnected
}

func (c *fakeConn) Cancels() int {
  c.mu.Lock()
  defer c.mu.Unlock()

  return c.cancels
}

// fakeDialer hands out connections in order; a nil entry fails with errRadio.
type fakeDialer struct {
  mu sync.Mutex
  calls int
  addrs []net.HardwareAddr

  conns []*fakeConn
  // block until the context is done instead of connecting.
  block bool
}

func (d *fakeDialer) Connect(ctx context.Context, addr net.HardwareAddr) (ble.Conn, error) {
  d.mu.Lock()
  i := d.calls
  d.calls += 1
  d.addrs = append(d.addrs, addr)
  d.mu.Unlock()

  if d.block {
    <-ctx.Done()
    return nil, ctx.Err()
  }

  if i >= len(d.conns) || d.conns[i] == nil {
    return nil, errRadio
  }

  return d.conns[i], nil
}

func (d *fakeDialer) Calls() int {
  d.mu.Lock()
  defer d.mu.Unlock()

  return d.calls
}

// gattProfile lays out the measurement service of v with the given data characteristic
// properties.
func gattProfile(v device.Variant, dataProperty ble_mod.Property) *ble_mod.Profile {
  p, err := radoneye.ProfileFor(v)

  if err != nil {
    panic(err)
  }

  return &ble_mod.Profile{
    Services: []*ble_mod.Service{
      {
        UUID: ble_mod.UUID16(0x1800),
        Characteristics: []*ble_mod.Characteristic{
          {UUID: ble_mod.UUID16(0x2a00), Property: ble_mod.CharRead},
        },
      },
      {
        UUID: p.Service,
        Characteristics: []*ble_mod.Characteristic{
          {UUID: p.CommandCharacteristic, Property: ble_mod.CharWrite},
          {UUID: p.DataCharacteristic, Property: dataProperty},
        },
      },
    },
  }
}

func mustAddr(s string) net.HardwareAddr {
  addr, err := device.ParseAddr(s)

  if err != nil {
    panic(err)
  }

  return addr
}
