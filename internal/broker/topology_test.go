package broker

import "testing"

func TestTopicHelpers(t *testing.T) {
	if got := CommandTopic("hearth", "woonkamer_lamp"); got != "hearth.device.woonkamer_lamp.command" {
		t.Errorf("unexpected command topic: %s", got)
	}
	if got := AckTopic("hearth", "woonkamer_lamp"); got != "hearth.device.woonkamer_lamp.ack" {
		t.Errorf("unexpected ack topic: %s", got)
	}
	if got := StateTopic("hearth", "sensor1", "measure_temperature"); got != "hearth.device.sensor1.state.measure_temperature" {
		t.Errorf("unexpected state topic: %s", got)
	}
	if got := StatePattern("hearth"); got != "hearth.device.*.state.*" {
		t.Errorf("unexpected state pattern: %s", got)
	}
}

func TestParseStateTopic(t *testing.T) {
	tests := []struct {
		name       string
		topic      string
		deviceID   string
		capability string
		ok         bool
	}{
		{"valid", "hearth.device.sensor1.state.measure_temperature", "sensor1", "measure_temperature", true},
		{"wrong prefix", "other.device.sensor1.state.measure_temperature", "", "", false},
		{"command topic", "hearth.device.sensor1.command", "", "", false},
		{"too short", "hearth.device.sensor1", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deviceID, capability, ok := ParseStateTopic("hearth", tt.topic)
			if ok != tt.ok || deviceID != tt.deviceID || capability != tt.capability {
				t.Errorf("ParseStateTopic(%s) = (%s, %s, %v), want (%s, %s, %v)",
					tt.topic, deviceID, capability, ok, tt.deviceID, tt.capability, tt.ok)
			}
		})
	}
}

func TestParseAckTopic(t *testing.T) {
	deviceID, ok := ParseAckTopic("hearth", "hearth.device.lamp1.ack")
	if !ok || deviceID != "lamp1" {
		t.Errorf("expected (lamp1, true), got (%s, %v)", deviceID, ok)
	}

	if _, ok := ParseAckTopic("hearth", "hearth.device.lamp1.state.onoff"); ok {
		t.Error("state topic should not parse as ack")
	}
}

func TestParsePayload(t *testing.T) {
	msg := &Message{
		Type: MessageTypeAck,
		Payload: map[string]any{
			"request_id": "req-1",
			"device_id":  "lamp1",
			"success":    true,
		},
	}

	ack, err := ParsePayload[AckPayload](msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.DeviceID != "lamp1" || !ack.Success || ack.RequestID != "req-1" {
		t.Errorf("unexpected payload: %+v", ack)
	}
}
