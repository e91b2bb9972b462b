package knowledge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain/batch"
	"github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

const controlAPI = "POST /api/device/control"

// DeviceRuleText teaches the model the device-control marker convention.
const DeviceRuleText = "设备控制输出格式：当用户要求开灯、关灯、打开或关闭某房间灯光时，先正常回复一句话（如「好的，已打开客厅灯」），" +
	"然后在回复的最后一行的下一行单独输出一行：[DEVICE_CTL] room=房间名 action=on 或 action=off。" +
	"房间名从用户话中识别（如客厅、卧室），未指定房间则写 room=all。例如：[DEVICE_CTL] room=客厅 action=on。" +
	"开灯、关灯、打开灯光、关闭灯光、打开客厅灯、关卧室灯 等说法都会触发此格式。"

// SyncFromDevices replaces the device and device_rule documents with one
// document per enabled device plus the control rule. Returns the number added.
func (s *Service) SyncFromDevices(ctx context.Context) (int, error) {
	devices, err := s.devices.FindAll(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("list devices: %w", err)
	}

	for _, src := range []string{vector.SourceDevice, vector.SourceDeviceRule} {
		if _, err := s.store.RemoveBySource(ctx, src); err != nil {
			return 0, fmt.Errorf("remove %s documents: %w", src, err)
		}
	}

	items := make([]Input, 0, len(devices)+1)
	for _, d := range devices {
		items = append(items, Input{Text: DeviceText(d), Metadata: deviceMetadata(d)})
	}
	items = append(items, Input{
		Text:     DeviceRuleText,
		Metadata: map[string]string{vector.KeySource: vector.SourceDeviceRule},
	})

	results := s.addBatch(ctx, items, vector.SourceDevice)
	added, failed := batch.Count(results)

	s.logger.Info("Devices synced to knowledge base",
		zap.Int("devices", len(devices)),
		zap.Int("added", added),
		zap.Int("failed", failed),
		zap.Int("store_size", s.store.Size()),
	)
	return added, nil
}

// DeviceText describes how to switch a device by voice.
func DeviceText(d device.Device) string {
	room := d.Room
	if room == "" {
		room = "未知"
	}
	return fmt.Sprintf(
		"关灯指令：说「关灯」或「关闭灯光」或「关%[1]s灯」。开灯指令：说「开灯」或「打开灯光」或「开%[1]s灯」。房间：%[1]s。"+
			"操作步骤：1) 在 App 或语音助手中说出「开灯/关灯」或带房间名「开%[1]s灯」；2) 系统根据房间名「%[1]s」解析到设备 %[2]s；"+
			"3) 调用设备控制接口 %[3]s 向 %[2]s 发送 { \"action\": \"on\" } 或 { \"action\": \"off\" }。",
		room, d.DeviceID, controlAPI,
	)
}

func deviceMetadata(d device.Device) map[string]string {
	return map[string]string{
		vector.KeySource:   vector.SourceDevice,
		vector.KeyCategory: "智能家居",
		"room":             d.Room,
		"roomId":           d.RoomID,
		"deviceId":         d.DeviceID,
		"deviceName":       d.DisplayName(),
	}
}
