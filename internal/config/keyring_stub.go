//go:build nokeyring

/*
 * Copyright 2025 Julian_Orteil
 * Licensed under the Apache License, Version 2.0.
 */

package config

import "errors"

// ErrKeyringUnavailable is returned when the binary was built without
// keyring support.
var ErrKeyringUnavailable = errors.New("keyring support not built in")

var (
	keyringGet    = func(service, key string) (string, error) { return "", ErrKeyringUnavailable }
	keyringSet    = func(service, key, value string) error { return ErrKeyringUnavailable }
	keyringDelete = func(service, key string) error { return ErrKeyringUnavailable }
)
