package notification

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	// TypeInfo is an informational notification
	TypeInfo NotificationType = "info"
	// TypeWarning is a warning notification
	TypeWarning NotificationType = "warning"
	// TypeError is an error notification
	TypeError NotificationType = "error"
)

// Notification is one desktop notification
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
}

// NotificationManager sends desktop notifications through the platform's
// notification command
type NotificationManager struct {
	appName string
	goos    string
	run     func(name string, args ...string) error
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager(appName string) *NotificationManager {
	return &NotificationManager{
		appName: appName,
		goos:    runtime.GOOS,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// command returns the program and arguments that display n
func (nm *NotificationManager) command(n *Notification) (string, []string, error) {
	switch nm.goos {
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`,
			escapeAppleScript(n.Message),
			escapeAppleScript(n.Title))
		return "osascript", []string{"-e", script}, nil
	case "linux":
		urgency := "normal"
		if n.Type == TypeError {
			urgency = "critical"
		}
		return "notify-send", []string{"--app-name", nm.appName, "--urgency", urgency, n.Title, n.Message}, nil
	default:
		return "", nil, fmt.Errorf("notifications are not supported on %s", nm.goos)
	}
}

// Send sends a notification to the user
func (nm *NotificationManager) Send(notification *Notification) error {
	if notification == nil {
		return fmt.Errorf("notification cannot be nil")
	}

	name, args, err := nm.command(notification)
	if err != nil {
		return err
	}
	if err := nm.run(name, args...); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// escapeAppleScript escapes special characters for AppleScript
func escapeAppleScript(s string) string {
	// Escape backslashes first to avoid double-escaping
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

// SendInfo sends an informational notification
func (nm *NotificationManager) SendInfo(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeInfo})
}

// SendWarning sends a warning notification
func (nm *NotificationManager) SendWarning(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeWarning})
}

// SendError sends an error notification
func (nm *NotificationManager) SendError(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeError})
}

// PipelineFailed reports a pipeline that could not start
func (nm *NotificationManager) PipelineFailed(reason string) error {
	message := "The audio pipeline could not start"
	if reason != "" {
		message += ": " + reason
	}
	return nm.SendError(nm.appName, message)
}

// HotkeysFailed reports shortcuts that could not be registered
func (nm *NotificationManager) HotkeysFailed(reason string) error {
	message := "Some shortcuts could not be registered"
	if reason != "" {
		message += ": " + reason
	}
	return nm.SendWarning(nm.appName, message)
}

// NotVirtualCable warns that the output is not a virtual cable
func (nm *NotificationManager) NotVirtualCable(device string) error {
	return nm.SendWarning(
		nm.appName,
		fmt.Sprintf("%s is not a virtual cable. Pick a virtual cable output to start automatically.", device),
	)
}

// MicrophonePermissionDenied reports that capture access is blocked
func (nm *NotificationManager) MicrophonePermissionDenied() error {
	return nm.SendError(
		nm.appName,
		"Microphone access is denied. Allow it in System Settings to use the soundboard.",
	)
}
