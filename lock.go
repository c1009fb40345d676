package main

import (
	"errors"
	"path/filepath"

	"contextcollector/internal/config"
)

// errAlreadyRunning is returned when another instance holds the lock.
var errAlreadyRunning = errors.New("another instance is already running")

const lockName = "contextcollector.lock"

func lockPath() string {
	return filepath.Join(config.Dir(), lockName)
}
