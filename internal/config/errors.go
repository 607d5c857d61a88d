// Package config provides configuration management: Viper-backed file/flag
// configuration plus the enumerated required-environment-variable contract.
package config

import (
	"errors"
	"fmt"
	"sort"
)

// ErrConfigInvalid is returned when the loaded configuration fails validation.
var ErrConfigInvalid = errors.New("invalid configuration")

// EnvUnsetError lists every required environment variable that was unset at
// startup. Environment variables are required; a single missing variable
// must not hide the others, so every unset key is collected before failing.
type EnvUnsetError struct {
	Keys []string
}

func (e *EnvUnsetError) Error() string {
	keys := append([]string(nil), e.Keys...)
	sort.Strings(keys)
	return fmt.Sprintf("environment variables unset: %v", keys)
}
