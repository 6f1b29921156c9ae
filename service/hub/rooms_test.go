package hub

import "testing"

func TestRoomForSubscription(t *testing.T) {
	cases := []struct {
		typ     string
		filters map[string]string
		want    string
	}{
		{"articles", map[string]string{"category": "sports"}, "news:sports"},
		{"articles", map[string]string{"category": "politics"}, "news:politics"},
		{"articles", nil, "news:all"},
		{"prices", nil, "topic:prices"},
	}
	for _, c := range cases {
		if got := RoomForSubscription(c.typ, c.filters); got != c.want {
			t.Errorf("RoomForSubscription(%q, %v) = %q, want %q", c.typ, c.filters, got, c.want)
		}
	}
}
