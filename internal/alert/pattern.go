package alert

import "time"

// Pattern is a timed on/off repeat sequence associated with a severity.
type Pattern struct {
	On      time.Duration
	Off     time.Duration
	Repeats int
}

// Duration returns how long the pattern holds the line before it rests.
func (p Pattern) Duration() time.Duration {
	var d time.Duration
	for _, s := range p.Steps() {
		d += s.Hold
	}
	return d
}

// Step is a single line write followed by a hold.
type Step struct {
	Active bool
	Hold   time.Duration
}

// DefaultPattern is used for any severity not in the table.
var DefaultPattern = Pattern{On: 500 * time.Millisecond, Off: 500 * time.Millisecond, Repeats: 2}

var patterns = map[Severity]Pattern{
	SeverityCritical: {On: 100 * time.Millisecond, Off: 100 * time.Millisecond, Repeats: 5},
	SeverityHigh:     {On: 200 * time.Millisecond, Off: 200 * time.Millisecond, Repeats: 3},
	SeverityWarning:  {On: 500 * time.Millisecond, Off: 500 * time.Millisecond, Repeats: 2},
	SeverityInfo:     {On: 1000 * time.Millisecond, Off: 500 * time.Millisecond, Repeats: 1},
	SeverityLow:      {On: 300 * time.Millisecond, Off: 300 * time.Millisecond, Repeats: 1},
}

// PatternFor returns the blink pattern for a severity. Matching is exact.
func PatternFor(s Severity) Pattern {
	if p, ok := patterns[s]; ok {
		return p
	}
	return DefaultPattern
}

// Steps expands the pattern into line writes. The line alternates active and
// inactive Repeats times, the pause after the last inactive write is omitted,
// and the sequence ends active.
func (p Pattern) Steps() []Step {
	steps := make([]Step, 0, 2*p.Repeats+1)
	for i := 0; i < p.Repeats; i++ {
		steps = append(steps, Step{Active: true, Hold: p.On})
		off := p.Off
		if i == p.Repeats-1 {
			off = 0
		}
		steps = append(steps, Step{Active: false, Hold: off})
	}
	return append(steps, Step{Active: true})
}

// BlinkInterval is the pause between writes of a manual blink.
const BlinkInterval = time.Second

// BlinkSteps returns the manual blink sequence: on, off, on, off with a pause
// between each write. It ends inactive.
func BlinkSteps() []Step {
	return []Step{
		{Active: true, Hold: BlinkInterval},
		{Active: false, Hold: BlinkInterval},
		{Active: true, Hold: BlinkInterval},
		{Active: false},
	}
}
