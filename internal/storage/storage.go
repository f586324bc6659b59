// Package storage holds errors shared by the store implementations in
// storage/memory and storage/postgres.
package storage

import "errors"

// ErrNotFound is returned when a record does not exist for the given user.
var ErrNotFound = errors.New("storage: not found")

// Drivers accepted in the storage.driver setting.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config selects the store backend.
type Config struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
}
