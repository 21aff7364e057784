//go:build !fyne

package ui

import (
	"strings"
	"testing"
)

func TestRunWithoutUITagExplainsRebuild(t *testing.T) {
	err := Run("")
	if err == nil {
		t.Fatal("headless build must refuse to start the UI")
	}
	for _, want := range []string{"UI not built", "fyne"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %q", err, want)
		}
	}
}
