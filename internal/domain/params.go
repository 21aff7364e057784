/*
 * Copyright 2025 Julian_Orteil
 * Licensed under the Apache License, Version 2.0.
 */

package domain

import (
	"fmt"
	"strconv"
)

// Param accessors. Manifest JSON round-trips numbers as float64 and shape
// lists as []any, so block params need coercion at every read site. These
// helpers centralize that.

// ParamInt returns the named int param or def.
func (b Block) ParamInt(key string, def int) int {
	v, ok := b.Params[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}

// ParamFloat returns the named float param or def.
func (b Block) ParamFloat(key string, def float64) float64 {
	v, ok := b.Params[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return def
}

// ParamString returns the named string param or def.
func (b Block) ParamString(key, def string) string {
	v, ok := b.Params[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return def
}

// ParamBool returns the named bool param or def.
func (b Block) ParamBool(key string, def bool) bool {
	v, ok := b.Params[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if p, err := strconv.ParseBool(t); err == nil {
			return p
		}
	}
	return def
}

// ParamInts returns the named int-list param (e.g. a kernel or pool size),
// or def. JSON unmarshals lists as []any.
func (b Block) ParamInts(key string, def []int) []int {
	v, ok := b.Params[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case []int:
		return append([]int(nil), t...)
	case []any:
		out := make([]int, 0, len(t))
		for _, e := range t {
			switch n := e.(type) {
			case float64:
				out = append(out, int(n))
			case int:
				out = append(out, n)
			default:
				return def
			}
		}
		return out
	}
	return def
}
