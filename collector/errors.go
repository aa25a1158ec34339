package collector

import "errors"

var (
  // No RadonEye advertiser was seen within the scan window.
  ErrDeviceNotFound = errors.New("no RadonEye device found")

  ErrConnectFailed = errors.New("failed to connect to device")
  ErrCharacteristicNotFound = errors.New("measurement characteristic not available")
  ErrNotifyTimeout = errors.New("timed out waiting for measurement")
  ErrDisconnected = errors.New("device disconnected")
  ErrDecodeFailed = errors.New("failed to decode measurement")

  // The reading decoded fine but is outside the range the sensor can measure.
  ErrImplausibleReading = errors.New("implausible radon value")

  // Returned by Acquirer.Acquire once every attempt failed.
  ErrAcquisitionFailed = errors.New("radon value could not be obtained")

  // The caller's context was canceled or expired. Never aliased to ErrNotifyTimeout.
  ErrCanceled = errors.New("acquisition canceled")

  errSessionUsed = errors.New("session already used")
)
