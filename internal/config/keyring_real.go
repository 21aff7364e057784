//go:build !nokeyring

/*
 * Copyright 2025 Julian_Orteil
 * Licensed under the Apache License, Version 2.0.
 */

package config

import "github.com/zalando/go-keyring"

// Real OS keyring bindings. Build with -tags nokeyring on headless systems
// without a secret service.
var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
)
