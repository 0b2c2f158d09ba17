//go:build !darwin

package permissions

import (
	"fmt"
	"runtime"
)

// Capture access is not gated per application outside macOS.
func microphoneStatus() PermissionStatus {
	return PermissionAuthorized
}

func openMicrophoneSettings() error {
	return fmt.Errorf("no microphone privacy settings on %s", runtime.GOOS)
}
