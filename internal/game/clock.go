// Package game holds the pure rules of a live quiz: deadline math, scoring, ranking and the
// session lifecycle. Nothing here touches storage or the network.
package game

import "time"

// IsLive reports whether a question with the given deadline still accepts answers at now.
// Every read path (sync views, answer validation, reveals) goes through this one comparison.
func IsLive(endsAt *time.Time, now time.Time) bool {
	return endsAt != nil && now.Before(*endsAt)
}

// RemainingSeconds returns ceil(endsAt-now) in whole seconds, never negative.
func RemainingSeconds(endsAt *time.Time, now time.Time) int {
	if endsAt == nil {
		return 0
	}
	d := endsAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
