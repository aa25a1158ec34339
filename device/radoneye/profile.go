package radoneye

import (
  "fmt"

  "github.com/robertof/go-radoneye-reader/ble"
  "github.com/robertof/go-radoneye-reader/device"
)

// Profile describes where a sensor generation exposes its measurement data. Writing
// Command to the command characteristic makes the sensor push one measurement frame,
// starting with the same command byte, on the data characteristic.
type Profile struct {
  Service ble.UUID
  CommandCharacteristic ble.UUID
  DataCharacteristic ble.UUID
  Command byte
}

var (
  legacyProfile = Profile{
    Service: ble.MustParseUUID("00001523-1212-efde-1523-785feabcd123"),
    CommandCharacteristic: ble.MustParseUUID("00001524-1212-efde-1523-785feabcd123"),
    DataCharacteristic: ble.MustParseUUID("00001525-1212-efde-1523-785feabcd123"),
    Command: legacyCommand,
  }

  currentProfile = Profile{
    Service: ble.MustParseUUID("00001523-0000-1000-8000-00805f9b34fb"),
    CommandCharacteristic: ble.MustParseUUID("00001524-0000-1000-8000-00805f9b34fb"),
    DataCharacteristic: ble.MustParseUUID("00001525-0000-1000-8000-00805f9b34fb"),
    Command: currentCommand,
  }
)

func ProfileFor(v device.Variant) (Profile, error) {
  switch v {
  case device.VariantLegacy:
    return legacyProfile, nil
  case device.VariantCurrent:
    return currentProfile, nil
  default:
    return Profile{}, fmt.Errorf("%w: %v", device.ErrUnknownVariant, v)
  }
}
