package device

import "strings"

// Button bits as reported in the native button mask.
type Button uint32

const (
	ButtonTriangle Button = 1 << 4
	ButtonCircle   Button = 1 << 5
	ButtonCross    Button = 1 << 6
	ButtonSquare   Button = 1 << 7
	ButtonSelect   Button = 1 << 8
	ButtonStart    Button = 1 << 11
	ButtonPS       Button = 1 << 16
	ButtonMove     Button = 1 << 19
	ButtonTrigger  Button = 1 << 20
)

// TriggerThreshold is the minimal analog trigger value that counts as a press.
const TriggerThreshold = 128

var buttonNames = []struct {
	button Button
	name   string
}{
	{ButtonTriangle, "triangle"},
	{ButtonCircle, "circle"},
	{ButtonCross, "cross"},
	{ButtonSquare, "square"},
	{ButtonSelect, "select"},
	{ButtonStart, "start"},
	{ButtonPS, "ps"},
	{ButtonMove, "move"},
	{ButtonTrigger, "trigger"},
}

// ParseButton resolves a lower case button name.
func ParseButton(name string) (Button, bool) {
	for _, b := range buttonNames {
		if b.name == name {
			return b.button, true
		}
	}
	return 0, false
}

// ButtonSet is a set of buttons packed the same way as the native mask.
type ButtonSet uint32

// FaceButtons are the four symbol buttons. Releasing any of them toggles admin rights in the lobby.
const FaceButtons = ButtonSet(ButtonTriangle | ButtonCircle | ButtonCross | ButtonSquare)

func (s ButtonSet) Has(b Button) bool {
	return s&ButtonSet(b) != 0
}

// Any reports whether s and other share a button.
func (s ButtonSet) Any(other ButtonSet) bool {
	return s&other != 0
}

func (s ButtonSet) String() string {
	var names []string
	for _, b := range buttonNames {
		if s.Has(b.button) {
			names = append(names, b.name)
		}
	}
	return "[" + strings.Join(names, " ") + "]"
}

// Pressed converts a raw sample into the pressed set. The trigger bit alone is not enough,
// the analog value has to reach TriggerThreshold as well.
func Pressed(mask uint32, trigger uint8) ButtonSet {
	set := ButtonSet(0)
	for _, b := range buttonNames {
		if mask&uint32(b.button) == 0 {
			continue
		}
		if b.button == ButtonTrigger && trigger < TriggerThreshold {
			continue
		}
		set |= ButtonSet(b.button)
	}
	return set
}

// clickTracker turns level triggered press samples into release edges.
type clickTracker struct {
	held ButtonSet
}

func (c *clickTracker) next(pressed ButtonSet) (released ButtonSet) {
	c.held |= pressed
	released = c.held &^ pressed
	c.held &^= released
	return released
}
