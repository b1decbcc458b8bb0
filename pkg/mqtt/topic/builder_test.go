package topic

import "testing"

func TestBuilder(t *testing.T) {
	b := NewBuilder("growhub/v1")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"event", b.Event("device_offline", "gh-001"), "growhub/v1/events/device_offline/gh-001"},
		{"event wildcard", b.EventWildcard(), "growhub/v1/events/#"},
		{"command", b.Command("gh-001"), "growhub/v1/commands/gh-001"},
		{"command wildcard", b.CommandWildcard(), "growhub/v1/commands/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
