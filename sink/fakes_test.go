package sink

import (
  "context"
  "errors"
  "net"
  "sync"
  "time"

  pahomqtt "github.com/eclipse/paho.mqtt.golang"

  "github.com/robertof/go-radoneye-reader/collector/model"
  "github.com/robertof/go-radoneye-reader/device"
)

var (
  sampleTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
  errBroker = errors.New("broker unavailable")
)

func sampleResult(bq, day, month float64) model.Result {
  addr, err := net.ParseMAC("AA:BB:CC:DD:EE:FF")
  if err != nil {
    panic(err)
  }

  return model.Result{
    Identity: device.Identity{Addr: addr, Variant: device.VariantCurrent},
    Reading: device.NewReading(bq, day, month, 12, 34),
    Attempt: 1,
    Time: sampleTime,
  }
}

type fakeToken struct {
  err error
  done chan struct{}
}

func newFakeToken(err error) *fakeToken {
  t := &fakeToken{err: err, done: make(chan struct{})}
  close(t.done)
  return t
}

func (t *fakeToken) Wait() bool { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error { return t.err }

type published struct {
  Topic string
  QoS byte
  Retained bool
  Payload string
}

// fakeClient records what would have been sent to the broker.
type fakeClient struct {
  pahomqtt.Client

  mu sync.Mutex
  opts *pahomqtt.ClientOptions
  connectErr error
  publishErr error
  published []published
  disconnects int
}

func (c *fakeClient) Connect() pahomqtt.Token {
  return newFakeToken(c.connectErr)
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
  c.mu.Lock()
  defer c.mu.Unlock()

  c.published = append(c.published, published{topic, qos, retained, string(payload.([]byte))})

  return newFakeToken(c.publishErr)
}

func (c *fakeClient) Disconnect(uint) {
  c.mu.Lock()
  defer c.mu.Unlock()

  c.disconnects++
}

func withFakeClient(m *MQTT, c *fakeClient) *MQTT {
  m.newClient = func(opts *pahomqtt.ClientOptions) pahomqtt.Client {
    c.opts = opts
    return c
  }

  return m
}

type recordingSink struct {
  mu sync.Mutex
  err error
  reports []Report
}

func (s *recordingSink) Publish(ctx context.Context, r Report) error {
  s.mu.Lock()
  defer s.mu.Unlock()

  s.reports = append(s.reports, r)

  return s.err
}
