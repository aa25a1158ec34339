package radoneye

import (
  "strings"

  "github.com/robertof/go-radoneye-reader/ble"
  "github.com/robertof/go-radoneye-reader/device"
)

// Local name prefixes advertised by each generation, e.g. "FR:R20:SN1234".
var (
  legacyNamePrefixes = []string{"FR:R2"}
  currentNamePrefixes = []string{"FR:RU", "FR:RE", "FR:GI", "FR:HA", "FR:GL"}
)

// MatchAdvertisement reports whether a belongs to a RadonEye sensor and which generation
// it is. Advertised services take precedence over the local name.
func MatchAdvertisement(a ble.Advertisement) (device.Variant, bool) {
  for _, svc := range a.Services() {
    switch {
    case svc.Equal(legacyProfile.Service):
      return device.VariantLegacy, true
    case svc.Equal(currentProfile.Service):
      return device.VariantCurrent, true
    }
  }

  name := strings.ToUpper(strings.TrimSpace(a.LocalName()))

  if name == "" {
    return 0, false
  }

  for _, prefix := range legacyNamePrefixes {
    if strings.HasPrefix(name, prefix) {
      return device.VariantLegacy, true
    }
  }

  for _, prefix := range currentNamePrefixes {
    if strings.HasPrefix(name, prefix) {
      return device.VariantCurrent, true
    }
  }

  return 0, false
}
