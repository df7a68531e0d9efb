package storage

import (
	"testing"
	"time"

	"github.com/dhima/usage-log/pkg/models"
)

var testNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func sampleState() models.State {
	return models.State{
		Events: []models.Event{
			{Time: testNow.Add(-time.Hour), Type: "person search", Properties: models.Properties{"fname": "jon", "lname": "snow"}},
			{Time: testNow, Type: "click", Properties: models.Properties{"item": "car"}},
		},
		LastCleaned: testNow,
	}
}

type eventKey struct {
	Millis     int64
	Type       string
	Properties models.Properties
}

// keysOf flattens events so that location differences introduced by decoding
// do not affect comparisons.
func keysOf(t *testing.T, events []models.Event) []eventKey {
	t.Helper()
	out := make([]eventKey, 0, len(events))
	for _, ev := range events {
		out = append(out, eventKey{Millis: ev.Time.UnixMilli(), Type: ev.Type, Properties: ev.Properties})
	}
	return out
}
