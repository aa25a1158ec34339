package ble

import "testing"

func TestConnParams_Set(t *testing.T) {
  tests := []struct {
    in string
    want ConnParams
    wantErr bool
  }{
    {in: "", want: ConnParamsDefault},
    {in: "default", want: ConnParamsDefault},
    {in: "power-saving", want: ConnParamsPowerSaving},
    {in: "turbo", wantErr: true},
  }

  for _, tt := range tests {
    var got ConnParams
    err := got.Set(tt.in)

    if (err != nil) != tt.wantErr {
      t.Fatalf("Set(%q): got err %v, wanted error: %v", tt.in, err, tt.wantErr)
    }

    if !tt.wantErr && got != tt.want {
      t.Errorf("Set(%q): got %v, wanted %v", tt.in, got, tt.want)
    }
  }
}

func TestConnParams_PowerSavingIsSlower(t *testing.T) {
  def := ConnParamsDefault.AdapterOptions()
  saving := ConnParamsPowerSaving.AdapterOptions()

  if saving.ConnIntervalMin <= def.ConnIntervalMin {
    t.Errorf("power-saving interval %d is not longer than default %d", saving.ConnIntervalMin, def.ConnIntervalMin)
  }

  if saving.SupervisionTimeout < def.SupervisionTimeout {
    t.Errorf("power-saving supervision timeout %d is shorter than default %d", saving.SupervisionTimeout, def.SupervisionTimeout)
  }
}

func TestFlags_String(t *testing.T) {
  if got := Flags(0).String(); got != "none" {
    t.Errorf("got %q, wanted none", got)
  }

  if got := FlagScanTypeActive.String(); got != "active scan" {
    t.Errorf("got %q, wanted active scan", got)
  }
}
