package sink

import (
  "context"
  "regexp"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

func TestMQTT_EmonCMS(t *testing.T) {
  client := &fakeClient{}
  m := withFakeClient(NewMQTT(MQTTOptions{Server: "broker.local", Username: "user", Password: "pw"}), client)

  require.NoError(t, m.Publish(context.Background(), NewReport(sampleResult(74, 0, 0), UnitBqM3)))

  assert.Equal(t, []published{{Topic: "emon/RadonEye/DD-EE-FF", QoS: 1, Payload: "74"}}, client.published)
  assert.Equal(t, 1, client.disconnects)

  require.NotNil(t, client.opts)
  require.Len(t, client.opts.Servers, 1)
  assert.Equal(t, "tcp://broker.local:1883", client.opts.Servers[0].String())
  assert.Equal(t, "user", client.opts.Username)
  assert.Equal(t, "pw", client.opts.Password)
  assert.Regexp(t, regexp.MustCompile(`^RadonEye_[1-9][0-9]{3}$`), client.opts.ClientID)
}

func TestMQTT_EmonCMSPicocurieIsNotRounded(t *testing.T) {
  client := &fakeClient{}
  m := withFakeClient(NewMQTT(MQTTOptions{Server: "broker.local"}), client)

  require.NoError(t, m.Publish(context.Background(), NewReport(sampleResult(18.5, 0, 0), UnitPCiL)))
  require.NoError(t, m.Publish(context.Background(), NewReport(sampleResult(74, 0, 0), UnitPCiL)))

  require.Len(t, client.published, 2)
  assert.Equal(t, "0.5", client.published[0].Payload)
  assert.Equal(t, "2", client.published[1].Payload)
}

func TestMQTT_HomeAssistantBecquerel(t *testing.T) {
  client := &fakeClient{}
  m := withFakeClient(NewMQTT(MQTTOptions{Server: "broker.local", Port: 1884, HomeAssistant: true}), client)

  require.NoError(t, m.Publish(context.Background(), NewReport(sampleResult(74, 111, 0), UnitBqM3)))

  require.Len(t, client.published, 2)
  assert.Equal(t, "enviroment/RadonEye/DD-EE-FF/radon_value", client.published[0].Topic)
  assert.JSONEq(t, `{"value": 74, "unit": "Bq/m^3"}`, client.published[0].Payload)
  assert.Equal(t, "enviroment/RadonEye/DD-EE-FF/attributes", client.published[1].Topic)
  assert.JSONEq(t, `{
    "unit": "Bq/m^3",
    "day_average": 111,
    "month_average": "-",
    "pulse_count_now": 12,
    "pulse_count_last": 34
  }`, client.published[1].Payload)
  assert.Equal(t, "tcp://broker.local:1884", client.opts.Servers[0].String())
}

func TestMQTT_HomeAssistantPicocurie(t *testing.T) {
  client := &fakeClient{}
  m := withFakeClient(NewMQTT(MQTTOptions{Server: "broker.local", HomeAssistant: true}), client)

  require.NoError(t, m.Publish(context.Background(), NewReport(sampleResult(74, 0, 0), UnitPCiL)))

  require.Len(t, client.published, 2)
  assert.JSONEq(t, `{"value": "2.00", "unit": "pCi/L"}`, client.published[0].Payload)
  assert.JSONEq(t, `{
    "unit": "pCi/L",
    "day_average": "-",
    "month_average": "-",
    "pulse_count_now": 12,
    "pulse_count_last": 34
  }`, client.published[1].Payload)
}

func TestMQTT_ConnectFailure(t *testing.T) {
  client := &fakeClient{connectErr: errBroker}
  m := withFakeClient(NewMQTT(MQTTOptions{Server: "broker.local"}), client)

  err := m.Publish(context.Background(), NewReport(sampleResult(74, 0, 0), UnitBqM3))

  assert.ErrorIs(t, err, errBroker)
  assert.Empty(t, client.published)
  assert.Zero(t, client.disconnects)
}

func TestMQTT_PublishFailure(t *testing.T) {
  client := &fakeClient{publishErr: errBroker}
  m := withFakeClient(NewMQTT(MQTTOptions{Server: "tcp://10.0.0.2:1999", HomeAssistant: true}), client)

  err := m.Publish(context.Background(), NewReport(sampleResult(74, 0, 0), UnitBqM3))

  assert.ErrorIs(t, err, errBroker)
  assert.Len(t, client.published, 1)
  assert.Equal(t, 1, client.disconnects)
  assert.Equal(t, "tcp://10.0.0.2:1999", client.opts.Servers[0].String())
}
