package mqtt

import "testing"

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"growhub/v1/events/device_offline/gh-1", "growhub/v1/events/device_offline/gh-1", true},
		{"growhub/v1/events/+/gh-1", "growhub/v1/events/device_online/gh-1", true},
		{"growhub/v1/events/+/gh-1", "growhub/v1/events/device_online/gh-2", false},
		{"growhub/v1/events/#", "growhub/v1/events/emergency_failsafe/gh-3", true},
		{"growhub/v1/events/#", "growhub/v1/commands/gh-3", false},
		{"growhub/v1/commands/+", "growhub/v1/commands/gh-1", true},
		{"growhub/v1/commands/+", "growhub/v1/commands/gh-1/extra", false},
		{"a/+/c", "a/b", false},
		{"a/#/c", "a/b/c", false}, // "#" must be last
	}

	for _, tt := range tests {
		if got := topicsMatch(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicsMatch(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}
