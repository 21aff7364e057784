//go:build fyne && !cgo

package ui

import "errors"

// Run refuses to start: Fyne renders through OpenGL, which needs cgo.
// Rebuild with CGO_ENABLED=1 and a C toolchain on PATH; on Windows,
// MSYS2/MinGW-w64 provides a suitable gcc.
func Run(_ string) error {
	return errors.New("the Fyne UI needs cgo for OpenGL; rebuild with CGO_ENABLED=1 and -tags fyne")
}
