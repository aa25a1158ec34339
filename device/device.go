package device

import (
  "errors"
  "fmt"
  "net"
  "regexp"
  "strconv"
  "strings"
)

var (
  ErrInvalidData = errors.New("invalid data")
  ErrCorruptedData = errors.New("corrupted data")
  ErrUnknownVariant = errors.New("unknown device variant")
)

// IsDecodeError reports whether err originates from a malformed payload.
func IsDecodeError(err error) bool {
  return errors.Is(err, ErrInvalidData) || errors.Is(err, ErrCorruptedData)
}

// Variant is the hardware generation of a RadonEye sensor. The two generations expose
// different GATT characteristics and incompatible payload layouts.
type Variant uint8

const (
  // RD200 sold before 2022 ("type 0").
  VariantLegacy Variant = iota
  // RD200 sold from 2022 onwards ("type 1").
  VariantCurrent
)

func (v Variant) String() string {
  switch v {
  case VariantLegacy:
    return "Legacy"
  case VariantCurrent:
    return "Current"
  default:
    return "Unknown(" + strconv.Itoa(int(v)) + ")"
  }
}

func (v Variant) Valid() bool {
  return v == VariantLegacy || v == VariantCurrent
}

// ParseVariant accepts the numeric type used on the command line ("0" or "1").
func ParseVariant(s string) (Variant, error) {
  n, err := strconv.Atoi(strings.TrimSpace(s))

  if err != nil || !Variant(n).Valid() || n < 0 {
    return 0, fmt.Errorf("%w: %q (must be 0 or 1)", ErrUnknownVariant, s)
  }

  return Variant(n), nil
}

var addrPattern = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)

// ParseAddr parses a MAC address in the `AA:BB:CC:DD:EE:FF` form. Lowercase input is
// accepted and normalized; any other notation is rejected.
func ParseAddr(s string) (net.HardwareAddr, error) {
  s = strings.ToUpper(strings.TrimSpace(s))

  if !addrPattern.MatchString(s) {
    return nil, fmt.Errorf("invalid address %q: want AA:BB:CC:DD:EE:FF", s)
  }

  return net.ParseMAC(s)
}

// Identity is the resolved address and hardware generation of the sensor.
type Identity struct {
  Addr net.HardwareAddr
  Variant Variant
}

func (i Identity) Address() string {
  return strings.ToUpper(i.Addr.String())
}

// Key identifies the sensor in published topics: its last three address octets joined by
// dashes, e.g. "D7-21-A0".
func (i Identity) Key() string {
  addr := i.Address()

  if len(addr) < 9 {
    return strings.ReplaceAll(addr, ":", "-")
  }

  return strings.ReplaceAll(addr[9:], ":", "-")
}

func (i Identity) String() string {
  return fmt.Sprintf("radoneye[addr=%v, variant=%v]", i.Address(), i.Variant)
}
