package radoneye

import (
  "encoding/binary"
  "math"

  "github.com/pkg/errors"
  "github.com/robertof/go-radoneye-reader/device"
)

// Legacy frame (RD200 before 2022), values in pCi/L:
//
//   0      command echo (0x50)
//   1      frame length
//   2..5   float32 current concentration
//   6..9   float32 day average
//   10..13 float32 month average
//   14..15 uint16  pulse count, current period
//   16..17 uint16  pulse count, previous period
const (
  legacyCommand = 0x50
  legacyFrameLen = 18

  legacyOffsetHeader = 0
  legacyOffsetValue = 2
  legacyOffsetDayAverage = 6
  legacyOffsetMonthAverage = 10
  legacyOffsetPulseCount = 14
  legacyOffsetPulseCountPrevious = 16
)

// Current frame (RD200 from 2022), values in Bq/m^3:
//
//   0      command echo (0x40)
//   1      frame length
//   2..3   uint16 current concentration
//   4..5   uint16 day average
//   6..7   uint16 month average
//   8..9   reserved
//   10..11 uint16 pulse count, current period
//   12..13 uint16 pulse count, previous period
const (
  currentCommand = 0x40
  currentFrameLen = 14

  currentOffsetHeader = 0
  currentOffsetValue = 2
  currentOffsetDayAverage = 4
  currentOffsetMonthAverage = 6
  currentOffsetPulseCount = 10
  currentOffsetPulseCountPrevious = 12
)

// Decode turns a measurement frame into a Reading. It either decodes every field or fails.
func Decode(raw []byte, v device.Variant) (device.Reading, error) {
  switch v {
  case device.VariantLegacy:
    return decodeLegacy(raw)
  case device.VariantCurrent:
    return decodeCurrent(raw)
  default:
    return device.Reading{}, errors.Wrapf(device.ErrUnknownVariant, "radoneye: cannot decode %v", v)
  }
}

// pCi/L to Bq/m^3, rounded to two decimals.
func pciToBq(v float32) float64 {
  return math.Round(float64(v) * device.BqPerPCi * 100) / 100
}

func decodeLegacy(raw []byte) (r device.Reading, err error) {
  if len(raw) < legacyFrameLen {
    return r, errors.Wrapf(device.ErrInvalidData,
      "radoneye: legacy frame too short (%d bytes, want >= %d)", len(raw), legacyFrameLen)
  }

  if raw[legacyOffsetHeader] != legacyCommand {
    return r, errors.Wrapf(device.ErrCorruptedData,
      "radoneye: unexpected legacy frame header %#02x", raw[legacyOffsetHeader])
  }

  bo := binary.LittleEndian
  values := [3]float32{
    math.Float32frombits(bo.Uint32(raw[legacyOffsetValue:])),
    math.Float32frombits(bo.Uint32(raw[legacyOffsetDayAverage:])),
    math.Float32frombits(bo.Uint32(raw[legacyOffsetMonthAverage:])),
  }

  for _, v := range values {
    if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
      return r, errors.Wrapf(device.ErrCorruptedData, "radoneye: non-finite value in legacy frame")
    }
  }

  return device.NewReading(
    pciToBq(values[0]),
    pciToBq(values[1]),
    pciToBq(values[2]),
    bo.Uint16(raw[legacyOffsetPulseCount:]),
    bo.Uint16(raw[legacyOffsetPulseCountPrevious:]),
  ), nil
}

func decodeCurrent(raw []byte) (r device.Reading, err error) {
  if len(raw) < currentFrameLen {
    return r, errors.Wrapf(device.ErrInvalidData,
      "radoneye: frame too short (%d bytes, want >= %d)", len(raw), currentFrameLen)
  }

  if raw[currentOffsetHeader] != currentCommand {
    return r, errors.Wrapf(device.ErrCorruptedData,
      "radoneye: unexpected frame header %#02x", raw[currentOffsetHeader])
  }

  bo := binary.LittleEndian

  return device.NewReading(
    float64(bo.Uint16(raw[currentOffsetValue:])),
    float64(bo.Uint16(raw[currentOffsetDayAverage:])),
    float64(bo.Uint16(raw[currentOffsetMonthAverage:])),
    bo.Uint16(raw[currentOffsetPulseCount:]),
    bo.Uint16(raw[currentOffsetPulseCountPrevious:]),
  ), nil
}
