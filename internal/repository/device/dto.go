package device

import (
	"strconv"
	"time"

	domdev "github.com/kailas-cloud/voxhome/internal/domain/device"
)

func buildHashFields(d domdev.Device) map[string]string {
	return map[string]string{
		"deviceId":   d.DeviceID,
		"name":       d.Name,
		"room":       d.Room,
		"roomId":     d.RoomID,
		"type":       d.Type,
		"endpoint":   d.Endpoint,
		"method":     string(d.Method),
		"onCommand":  d.OnCommand,
		"offCommand": d.OffCommand,
		"status":     d.Status,
		"enabled":    strconv.FormatBool(d.Enabled),
		"createdAt":  d.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt":  d.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parseHashFields(id int64, m map[string]string) domdev.Device {
	enabled, _ := strconv.ParseBool(m["enabled"])
	created, _ := time.Parse(time.RFC3339Nano, m["createdAt"])
	updated, _ := time.Parse(time.RFC3339Nano, m["updatedAt"])
	method, err := domdev.ParseMethod(m["method"])
	if err != nil {
		method = domdev.MethodPOST
	}
	return domdev.Device{
		ID:         id,
		DeviceID:   m["deviceId"],
		Name:       m["name"],
		Room:       m["room"],
		RoomID:     m["roomId"],
		Type:       m["type"],
		Endpoint:   m["endpoint"],
		Method:     method,
		OnCommand:  m["onCommand"],
		OffCommand: m["offCommand"],
		Status:     m["status"],
		Enabled:    enabled,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}
}
