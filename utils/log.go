package utils

import (
  "fmt"

  "github.com/rs/zerolog"
)

// ToZeroLogArray renders each element through its String method, e.g. for service UUIDs.
func ToZeroLogArray[T fmt.Stringer](arr []T) *zerolog.Array {
  ret := zerolog.Arr()

  for _, elem := range arr {
    ret = ret.Str(elem.String())
  }

  return ret
}
