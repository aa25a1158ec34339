package sink

import (
  "context"
  "encoding/json"
  "fmt"
  "math/rand"
  "strconv"
  "strings"
  "time"

  pahomqtt "github.com/eclipse/paho.mqtt.golang"
  "github.com/pkg/errors"
  "github.com/rs/zerolog"
  "github.com/rs/zerolog/log"
)

const (
  DefaultMQTTPort = 1883
  DefaultMQTTTimeout = 10 * time.Second

  mqttQoS = 1
  mqttQuiesceMillis = 250

  emonTopicPrefix = "emon/RadonEye/"
  homeAssistantTopicPrefix = "enviroment/RadonEye/"
)

type MQTTOptions struct {
  Server string
  Port int
  Username string
  Password string
  // HomeAssistant switches the payload layout from EmonCMS to Home Assistant.
  HomeAssistant bool
  Timeout time.Duration
  Logger *zerolog.Logger
}

// MQTT connects to the broker for every report, publishes it and disconnects.
type MQTT struct {
  opts MQTTOptions
  newClient func(*pahomqtt.ClientOptions) pahomqtt.Client
}

type mqttMessage struct {
  Topic string
  Payload []byte
}

type haValue struct {
  Value any `json:"value"`
  Unit Unit `json:"unit"`
}

type haAttributes struct {
  Unit Unit `json:"unit"`
  DayAverage any `json:"day_average"`
  MonthAverage any `json:"month_average"`
  PulseCountNow uint16 `json:"pulse_count_now"`
  PulseCountLast uint16 `json:"pulse_count_last"`
}

func NewMQTT(opts MQTTOptions) *MQTT {
  if opts.Port == 0 {
    opts.Port = DefaultMQTTPort
  }

  if opts.Timeout == 0 {
    opts.Timeout = DefaultMQTTTimeout
  }

  if opts.Logger == nil {
    opts.Logger = &log.Logger
  }

  return &MQTT{opts: opts, newClient: pahomqtt.NewClient}
}

func (m *MQTT) brokerURL() string {
  if strings.Contains(m.opts.Server, "://") {
    return m.opts.Server
  }

  return fmt.Sprintf("tcp://%s:%d", m.opts.Server, m.opts.Port)
}

func clientID() string {
  return fmt.Sprintf("RadonEye_%d", 1000 + rand.Intn(9000))
}

func (m *MQTT) format() string {
  if m.opts.HomeAssistant {
    return "Home Assistant"
  }

  return "EmonCMS"
}

func (m *MQTT) Publish(ctx context.Context, r Report) error {
  msgs, err := m.messages(r)
  if err != nil {
    return err
  }

  id := clientID()
  opts := pahomqtt.NewClientOptions().
    AddBroker(m.brokerURL()).
    SetClientID(id).
    SetUsername(m.opts.Username).
    SetPassword(m.opts.Password).
    SetConnectTimeout(m.opts.Timeout).
    SetAutoReconnect(false)

  m.opts.Logger.Debug().
    Str("Broker", m.brokerURL()).
    Str("ClientID", id).
    Str("Username", m.opts.Username).
    Str("Output", m.format()).
    Msg("Sending to MQTT")

  client := m.newClient(opts)

  if err := wait(ctx, client.Connect(), m.opts.Timeout); err != nil {
    return errors.Wrapf(err, "failed to connect to MQTT broker %s", m.brokerURL())
  }

  defer client.Disconnect(mqttQuiesceMillis)

  for _, msg := range msgs {
    if err := wait(ctx, client.Publish(msg.Topic, mqttQoS, false, msg.Payload), m.opts.Timeout); err != nil {
      return errors.Wrapf(err, "failed to publish to %s", msg.Topic)
    }

    m.opts.Logger.Trace().Str("Topic", msg.Topic).Bytes("Payload", msg.Payload).Msg("Published")
  }

  m.opts.Logger.Debug().Int("Messages", len(msgs)).Msg("All OK")

  return nil
}

func wait(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
  select {
  case <-token.Done():
    return token.Error()
  case <-ctx.Done():
    return ctx.Err()
  case <-time.After(timeout):
    return errors.Errorf("timed out after %s", timeout)
  }
}

// jsonNumber keeps Bq/m^3 values numeric and pCi/L values as two-decimal strings.
func (r Report) jsonNumber(v float64) any {
  if r.Unit == UnitPCiL {
    return r.Format(v)
  }

  return v
}

func (m *MQTT) messages(r Report) ([]mqttMessage, error) {
  key := r.Identity.Key()

  if !m.opts.HomeAssistant {
    return []mqttMessage{{
      Topic: emonTopicPrefix + key,
      Payload: []byte(strconv.FormatFloat(r.Value, 'f', -1, 64)),
    }}, nil
  }

  attrs := haAttributes{
    Unit: r.Unit,
    DayAverage: AbsentMarker,
    MonthAverage: AbsentMarker,
    PulseCountNow: r.Reading.PulseCount,
    PulseCountLast: r.Reading.PulseCountPrevious,
  }

  if r.HasDayAverage {
    attrs.DayAverage = r.jsonNumber(r.DayAverage)
  }

  if r.HasMonthAverage {
    attrs.MonthAverage = r.jsonNumber(r.MonthAverage)
  }

  value, err := json.MarshalIndent(haValue{Value: r.jsonNumber(r.Value), Unit: r.Unit}, "", "  ")
  if err != nil {
    return nil, errors.Wrap(err, "failed to encode value")
  }

  attributes, err := json.MarshalIndent(attrs, "", "  ")
  if err != nil {
    return nil, errors.Wrap(err, "failed to encode attributes")
  }

  topic := homeAssistantTopicPrefix + key + "/"

  return []mqttMessage{
    {Topic: topic + "radon_value", Payload: value},
    {Topic: topic + "attributes", Payload: attributes},
  }, nil
}
