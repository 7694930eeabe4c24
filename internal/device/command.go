package device

import "time"

type animation struct {
	frames   []Color
	start    time.Time
	duration time.Duration
	loop     bool
}

// frame returns the color to show at now and whether a non looping animation has ended.
func (a *animation) frame(now time.Time) (Color, bool) {
	n := len(a.frames)
	if n == 0 {
		return Off, true
	}
	if a.duration <= 0 {
		return a.frames[n-1], !a.loop
	}

	elapsed := now.Sub(a.start)
	if elapsed < 0 {
		elapsed = 0
	}

	step := a.duration / time.Duration(n)
	if step <= 0 {
		step = 1
	}

	idx := int(elapsed / step)
	if a.loop {
		return a.frames[idx%n], false
	}
	if idx >= n {
		return a.frames[n-1], true
	}
	return a.frames[idx], false
}

type rumbleEvent struct {
	issued    time.Time
	until     time.Time
	intensity uint8
}

// resolveRumble drops expired events and keeps the most recently issued of the rest.
func resolveRumble(events []rumbleEvent, now time.Time) ([]rumbleEvent, uint8) {
	var (
		winner rumbleEvent
		found  bool
	)
	for _, ev := range events {
		if !ev.until.After(now) {
			continue
		}
		if !found || !ev.issued.Before(winner.issued) {
			winner = ev
			found = true
		}
	}

	if !found {
		return events[:0], 0
	}

	events = append(events[:0], winner)
	return events, winner.intensity
}

// frame is one LED/rumble state waiting to be written to the hardware.
type frame struct {
	color  Color
	rumble uint8
}
