package watch

import (
	"strings"
	"time"
)

const activityDots = 5

// Activity lights up when an event arrives and fades one dot every two
// seconds after that.
type Activity struct {
	lastEvent time.Time
}

func (a *Activity) OnEvent(at time.Time) {
	a.lastEvent = at
}

func (a Activity) LastEvent() time.Time {
	return a.lastEvent
}

// Lit returns how many dots are on at now.
func (a Activity) Lit(now time.Time) int {
	if a.lastEvent.IsZero() {
		return 0
	}
	lit := activityDots - int(now.Sub(a.lastEvent)/(2*time.Second))
	return max(lit, 0)
}

func (a Activity) Render(theme Theme, now time.Time) string {
	lit := a.Lit(now)
	var b strings.Builder
	for i := range activityDots {
		if i < lit {
			b.WriteString(theme.DotActive.Render("●"))
		} else {
			b.WriteString(theme.DotInactive.Render("○"))
		}
	}
	return b.String()
}
