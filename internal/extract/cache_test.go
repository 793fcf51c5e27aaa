package extract

import (
	"testing"
	"time"
)

func TestPointsCache(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	c := newPointsCache(time.Hour)
	c.now = func() time.Time { return now }

	if _, ok := c.get(); ok {
		t.Fatal("empty cache should miss")
	}

	meta := &PointsMetadata{ForecastURL: "https://example.com/forecast"}
	c.put(meta)

	got, ok := c.get()
	if !ok || got != meta {
		t.Fatal("fresh entry should hit")
	}

	now = now.Add(59 * time.Minute)
	if _, ok := c.get(); !ok {
		t.Error("entry within TTL should hit")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.get(); ok {
		t.Error("expired entry should miss")
	}
}
