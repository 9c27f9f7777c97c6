package alert

import "time"

func NewCooldownWithClock(p Provider, d time.Duration, now func() time.Time) Provider {
	return newCooldown(p, d, now)
}
