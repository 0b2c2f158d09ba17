package permissions

// PermissionStatus represents the status of a system permission
type PermissionStatus int

const (
	// PermissionNotDetermined means the user hasn't been asked yet
	PermissionNotDetermined PermissionStatus = 0
	// PermissionRestricted means the permission is restricted by parental controls
	PermissionRestricted PermissionStatus = 1
	// PermissionDenied means the user has explicitly denied the permission
	PermissionDenied PermissionStatus = 2
	// PermissionAuthorized means the user has authorized the permission
	PermissionAuthorized PermissionStatus = 3
)

// PermissionChecker checks the microphone permission capture needs
type PermissionChecker struct {
	microphone   func() PermissionStatus
	openSettings func() error
}

// NewPermissionChecker creates a checker for the current platform
func NewPermissionChecker() *PermissionChecker {
	return &PermissionChecker{
		microphone:   microphoneStatus,
		openSettings: openMicrophoneSettings,
	}
}

// CheckMicrophonePermission returns the microphone permission status
func (pc *PermissionChecker) CheckMicrophonePermission() PermissionStatus {
	return pc.microphone()
}

// IsMicrophoneAuthorized returns whether microphone permission is granted.
// NotDetermined counts as granted: opening the input stream shows the prompt.
func (pc *PermissionChecker) IsMicrophoneAuthorized() bool {
	switch pc.CheckMicrophonePermission() {
	case PermissionAuthorized, PermissionNotDetermined:
		return true
	default:
		return false
	}
}

// RequestMicrophonePermission opens the system settings page for the microphone
func (pc *PermissionChecker) RequestMicrophonePermission() error {
	return pc.openSettings()
}

// PermissionStatus string representation
func (ps PermissionStatus) String() string {
	switch ps {
	case PermissionNotDetermined:
		return "NotDetermined"
	case PermissionRestricted:
		return "Restricted"
	case PermissionDenied:
		return "Denied"
	case PermissionAuthorized:
		return "Authorized"
	default:
		return "Unknown"
	}
}

// GetPermissionStatusMessage returns a human-readable message for a permission status
func GetPermissionStatusMessage(status PermissionStatus) string {
	switch status {
	case PermissionNotDetermined:
		return "Permission not yet determined"
	case PermissionRestricted:
		return "Permission restricted by parental controls"
	case PermissionDenied:
		return "Permission denied"
	case PermissionAuthorized:
		return "Permission authorized"
	default:
		return "Unknown permission status"
	}
}
