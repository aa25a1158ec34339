package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"

	"github.com/robertof/go-radoneye-reader/ble"
	"github.com/robertof/go-radoneye-reader/device"
	"github.com/robertof/go-radoneye-reader/device/radoneye"
	"github.com/robertof/go-radoneye-reader/utils"
)

const discoveryDuration = 5 * time.Second

type discoveredDevice struct {
  name string
  variant device.Variant
  rssi int
  services map[string]bool
}

// mergeAdvertisement records a RadonEye advertisement, merging it with what was already seen
// for the same address. It reports whether the advertisement belonged to a RadonEye.
func mergeAdvertisement(devices map[string]*discoveredDevice, a ble.Advertisement) bool {
  variant, ok := radoneye.MatchAdvertisement(a)
  if !ok {
    return false
  }

  addr := a.Addr().String()
  info, seen := devices[addr]

  if !seen {
    info = &discoveredDevice{services: make(map[string]bool)}
    devices[addr] = info
  }

  if info.name == "" {
    info.name = a.LocalName()
  }

  info.variant = variant
  info.rssi = a.RSSI()

  for _, uuid := range a.Services() {
    info.services[uuid.String()] = true
  }

  return true
}

func doDeviceDiscovery(cfg config) {
  log.Info().Msgf("Starting in device discovery mode - collecting RadonEye devices for %s...", discoveryDuration)

  handle, err := ble.InitWithConnParams(cfg.BluetoothDeviceId, cfg.BluetoothConnParams, ble.FlagScanTypeActive)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  defer handle.Stop()

  ctx := ble.WrapContextWithSigHandler(
    context.WithTimeout(
      context.Background(),
      discoveryDuration,
    ),
  )

  devices := make(map[string]*discoveredDevice)

  err = handle.ScanAll(ctx, func(a ble.Advertisement) {
    if !mergeAdvertisement(devices, a) {
      return
    }

    log.Debug().
      Str("Addr", a.Addr().String()).
      Str("Name", a.LocalName()).
      Int("RSSI", a.RSSI()).
      Array("Services", utils.ToZeroLogArray(a.Services())).
      Msg("Received RadonEye advertisement")
  })

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initiate scan")
  }

  log.Info().Int("Found", len(devices)).Msg("Finished device discovery")

  for addr, data := range devices {
    log.Info().
      Str("Addr", addr).
      Str("Name", data.name).
      Stringer("Variant", data.variant).
      Int("Type", int(data.variant)).
      Int("RSSI", data.rssi).
      Strs("Services", maps.Keys(data.services)).
      Msg("Found device")
  }
}
