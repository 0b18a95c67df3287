package service

import (
	"context"
	"time"
)

func testCtx() context.Context {
	return context.Background()
}

func event(typ string, at time.Time) TelemetryEventInput {
	return TelemetryEventInput{EventType: typ, Timestamp: at}
}

// suspiciousBatch is five rapid-fire answers with a paste in between.
func suspiciousBatch(start time.Time) []TelemetryEventInput {
	var events []TelemetryEventInput
	for i := 0; i < 5; i++ {
		events = append(events, event("rapid_fire_answer", start.Add(time.Duration(i)*time.Second)))
	}
	return append(events, event("paste_action", start.Add(2*time.Second)))
}
