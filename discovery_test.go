package main

import (
  "testing"

  ble_mod "github.com/go-ble/ble"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/robertof/go-radoneye-reader/ble"
  "github.com/robertof/go-radoneye-reader/device"
)

type fakeAdvertisement struct {
  ble.Advertisement

  name string
  services []ble.UUID
  addr string
  rssi int
}

func (f fakeAdvertisement) LocalName() string { return f.name }
func (f fakeAdvertisement) Services() []ble.UUID { return f.services }
func (f fakeAdvertisement) Addr() ble_mod.Addr { return ble_mod.NewAddr(f.addr) }
func (f fakeAdvertisement) RSSI() int { return f.rssi }

func TestMergeAdvertisement(t *testing.T) {
  devices := make(map[string]*discoveredDevice)
  current := ble.MustParseUUID("00001523-0000-1000-8000-00805f9b34fb")

  assert.False(t, mergeAdvertisement(devices, fakeAdvertisement{name: "tps", addr: "11:22:33:44:55:66"}))
  assert.True(t, mergeAdvertisement(devices, fakeAdvertisement{name: "FR:RU11:SN0001", addr: "aa:bb:cc:dd:ee:ff", rssi: -80}))
  assert.True(t, mergeAdvertisement(devices, fakeAdvertisement{
    services: []ble.UUID{current},
    addr: "aa:bb:cc:dd:ee:ff",
    rssi: -70,
  }))

  require.Len(t, devices, 1)

  got := devices["aa:bb:cc:dd:ee:ff"]
  require.NotNil(t, got)
  assert.Equal(t, "FR:RU11:SN0001", got.name)
  assert.Equal(t, device.VariantCurrent, got.variant)
  assert.Equal(t, -70, got.rssi)
  assert.Equal(t, map[string]bool{current.String(): true}, got.services)
}
