package config

import "errors"

// ErrConfigNotFound indicates the configuration could be found neither on
// disk nor among the embedded resources.
var ErrConfigNotFound = errors.New("configuration not found")

// ErrInvalidConfig indicates the configuration was read but failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")
