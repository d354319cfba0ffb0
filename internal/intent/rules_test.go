package intent

import (
	"context"
	"errors"
	"testing"
)

func testResolver() *RuleResolver {
	return NewRuleResolver([]string{"living_room", "woonkamer", "keuken"})
}

func TestRuleResolver_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		kind       Kind
		deviceType string
		zone       string
		value      *float64
	}{
		{
			name:       "turn on light",
			text:       "turn on the living room light",
			kind:       KindTurnOn,
			deviceType: "light",
			zone:       "living_room",
		},
		{
			name:       "turn off light dutch",
			text:       "zet uit de lamp in de woonkamer",
			kind:       KindTurnOff,
			deviceType: "light",
			zone:       "woonkamer",
		},
		{
			name:       "set brightness",
			text:       "set the living room lamp brightness to 80%",
			kind:       KindSetBrightness,
			deviceType: "light",
			zone:       "living_room",
			value:      ptr(80.0),
		},
		{
			name:       "set temperature targets thermostat",
			text:       "set the temperature in the keuken to 21.5",
			kind:       KindSetTemperature,
			deviceType: "thermostat",
			zone:       "keuken",
			value:      ptr(21.5),
		},
		{
			name:       "read sensor",
			text:       "what is the temperature in the living room",
			kind:       KindReadSensor,
			deviceType: "sensor",
			zone:       "living_room",
		},
		{
			name: "unrecognized",
			text: "sing me a song",
			kind: KindOther,
		},
	}

	r := testResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := r.Resolve(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if it.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", it.Kind, tt.kind)
			}
			if it.DeviceType != tt.deviceType {
				t.Errorf("device_type = %s, want %s", it.DeviceType, tt.deviceType)
			}
			if it.Zone != tt.zone {
				t.Errorf("zone = %s, want %s", it.Zone, tt.zone)
			}
			if tt.value != nil {
				if it.Value == nil || *it.Value != *tt.value {
					t.Errorf("value = %v, want %v", it.Value, *tt.value)
				}
			}
			if it.Raw != tt.text {
				t.Errorf("raw should keep original text")
			}
		})
	}
}

func TestRuleResolver_EmptyText(t *testing.T) {
	r := testResolver()

	_, err := r.Resolve(context.Background(), "   ")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}

func TestKind_IsActuation(t *testing.T) {
	actuations := []Kind{KindTurnOn, KindTurnOff, KindSetBrightness, KindSetTemperature}
	for _, k := range actuations {
		if !k.IsActuation() {
			t.Errorf("%s should be an actuation", k)
		}
	}
	if KindReadSensor.IsActuation() || KindOther.IsActuation() {
		t.Error("read_sensor and other are not actuations")
	}
}

func ptr(v float64) *float64 { return &v }
