// Package device describes controllable smart-home devices.
package device

import (
	"fmt"
	"strings"
	"time"
)

// Method is the HTTP verb a device accepts commands on.
type Method string

// Supported control methods.
const (
	MethodGET  Method = "GET"
	MethodPOST Method = "POST"
)

// ParseMethod normalizes a control method; empty defaults to POST.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GET":
		return MethodGET, nil
	case "POST", "":
		return MethodPOST, nil
	default:
		return "", fmt.Errorf("unsupported control method %q", s)
	}
}

// Device is a registered smart-home device.
type Device struct {
	ID         int64
	DeviceID   string
	Name       string
	Room       string
	RoomID     string
	Type       string
	Endpoint   string
	Method     Method
	OnCommand  string
	OffCommand string
	Status     string
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the fields every stored device must carry.
func (d Device) Validate() error {
	if strings.TrimSpace(d.DeviceID) == "" {
		return fmt.Errorf("deviceId is required")
	}
	if len(d.DeviceID) > 64 {
		return fmt.Errorf("deviceId too long (max 64)")
	}
	if strings.TrimSpace(d.Room) == "" {
		return fmt.Errorf("room is required")
	}
	if _, err := ParseMethod(string(d.Method)); err != nil {
		return err
	}
	return nil
}

// Command returns the raw on or off command.
func (d Device) Command(turnOn bool) string {
	if turnOn {
		return d.OnCommand
	}
	return d.OffCommand
}

// DisplayName falls back to DeviceID when Name is unset.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.DeviceID
}

// Action renders turnOn as the wire action.
func Action(turnOn bool) string {
	if turnOn {
		return "on"
	}
	return "off"
}

// ParseAction converts "on"/"off" (any case) to turnOn.
func ParseAction(s string) (turnOn bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("action must be on or off, got %q", s)
	}
}
