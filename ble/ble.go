package ble

import (
  "fmt"

  "github.com/go-ble/ble"
  "github.com/go-ble/ble/linux"
  "github.com/go-ble/ble/linux/hci/cmd"
  "github.com/prometheus/client_golang/prometheus"
  "github.com/rs/zerolog/log"
)

const (
  CharRead = ble.CharRead
  CharWrite = ble.CharWrite
  CharWriteNR = ble.CharWriteNR
  CharNotify = ble.CharNotify
  CharIndicate = ble.CharIndicate
)

type Advertisement = ble.Advertisement
type Characteristic = ble.Characteristic
type Profile = ble.Profile
type Service = ble.Service
type UUID = ble.UUID
type NotificationHandler = ble.NotificationHandler

// Conn is the part of a GATT client connection used to exchange data with a peripheral.
type Conn interface {
  DiscoverProfile(force bool) (*Profile, error)
  ReadCharacteristic(c *Characteristic) ([]byte, error)
  WriteCharacteristic(c *Characteristic, value []byte, noRsp bool) error
  Subscribe(c *Characteristic, ind bool, h NotificationHandler) error
  Unsubscribe(c *Characteristic, ind bool) error
  CancelConnection() error
  Disconnected() <-chan struct{}
}

type Handle struct {
  dev *linux.Device
  deviceID int
}

func MustParseUUID(s string) UUID {
  return ble.MustParse(s)
}

func RegisterMetrics(reg prometheus.Registerer) {
  reg.MustRegister(
    successfulConnectionsCounter,
    failedConnectionsCounter,
    disconnectsCounter,
  )
}

// Init opens the HCI device hci<deviceID>.
func Init(deviceID int, flags Flags) (*Handle, error) {
  return InitWithConnParams(
    deviceID,
    ConnParamsDefault,
    flags,
  )
}

func InitWithConnParams(deviceID int, connParams ConnParams, flags Flags) (*Handle, error) {
  var scanType scanType = scanTypePassive

  if flags & FlagScanTypeActive == FlagScanTypeActive {
    scanType = scanTypeActive
  }

  log.Debug().
    Stringer("ScanType", scanType).
    Stringer("ConnParams", &connParams).
    Stringer("Flags", flags).
    Int("DeviceID", deviceID).
    Msgf("Initializing Bluetooth device hci%d", deviceID)

  dev, err := linux.NewDevice(
    ble.OptDeviceID(deviceID),
    ble.OptScanParams(cmd.LESetScanParameters{
      LEScanType:           uint8(scanType), // 0x00: passive, 0x01: active
      LEScanInterval:       0x0010,          // 0x0004 - 0x4000; N * 0.625msec
      LEScanWindow:         0x0010,          // 0x0004 - 0x4000; N * 0.625msec
      OwnAddressType:       0x00,            // 0x00: public, 0x01: random
      ScanningFilterPolicy: 0x00,            // 0x00: accept all
    }),
    ble.OptConnParams(connParams.AdapterOptions()),
  )

  if err != nil {
    return nil, fmt.Errorf("failed to init bluetooth device hci%d: %w", deviceID, err)
  }

  return &Handle{
    dev: dev,
    deviceID: deviceID,
  }, nil
}

func (h *Handle) Stop() {
  if err := h.dev.Stop(); err != nil {
    log.Warn().Err(err).Int("DeviceID", h.deviceID).Msg("ble: failed to stop Bluetooth device")
  }
}
