package orgdate

import (
	"regexp"
	"sort"
	"strconv"
	"time"
)

// The scanner mirrors the fixed timestamp grammar: range forms are tried
// before the single forms they contain, and a span of text claimed by an
// earlier pattern is never re-matched by a later one. The three-letter
// weekday token is documentation only and is not checked against the
// computed weekday.
var (
	reActiveSameDayRange = regexp.MustCompile(
		`<(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z] (\d{2}):(\d{2})-(\d{2}):(\d{2})>`)
	reActiveDateTimeRange = regexp.MustCompile(
		`<(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z] (\d{2}):(\d{2})>--` +
			`<(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z] (\d{2}):(\d{2})>`)
	reActiveDateRange = regexp.MustCompile(
		`<(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z]>--` +
			`<(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z]>`)
	reActiveDateTime = regexp.MustCompile(
		`<(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z] (\d{1,2}):(\d{2})( \+(\d+)(wd|wm|d|w|m))?>`)
	reInactiveDateTimeRange = regexp.MustCompile(
		`\[(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z] (\d{2}):(\d{2})\]--` +
			`\[(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z] (\d{2}):(\d{2})\]`)
	reInactiveDateTime = regexp.MustCompile(
		`\[(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z] (\d{1,2}):(\d{2})( \+(\d+)(wd|wm|d|w|m))?\]`)
	reInactiveDate = regexp.MustCompile(
		`\[(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z]( \+(\d+)(wd|wm|d|w|m))?\]`)
	reActiveDate = regexp.MustCompile(
		`<(\d{4})-(\d{2})-(\d{2}) [A-Z][a-z][a-z]( \+(\d+)(wd|wm|d|w|m))?>`)
)

type pattern struct {
	re    *regexp.Regexp
	build func(g []string) (Value, error)
}

var patterns = []pattern{
	{reActiveSameDayRange, func(g []string) (Value, error) { return buildSameDayRange(g, true) }},
	{reActiveDateTimeRange, func(g []string) (Value, error) { return buildDateTimeRange(g, true) }},
	{reActiveDateRange, func(g []string) (Value, error) { return buildDateRange(g, true) }},
	{reActiveDateTime, func(g []string) (Value, error) { return buildDateTime(g, true) }},
	{reInactiveDateTimeRange, func(g []string) (Value, error) { return buildDateTimeRange(g, false) }},
	{reInactiveDateTime, func(g []string) (Value, error) { return buildDateTime(g, false) }},
	{reInactiveDate, func(g []string) (Value, error) { return buildDate(g, false) }},
	{reActiveDate, func(g []string) (Value, error) { return buildDate(g, true) }},
}

// Scan extracts every calendar value from text, left to right. A
// candidate match with out-of-range fields is skipped; scanning always
// continues with the remaining text.
func Scan(text string) []Value {
	type hit struct {
		start int
		v     Value
	}
	var hits []hit
	var taken [][2]int

	for _, p := range patterns {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if overlapsAny(taken, idx[0], idx[1]) {
				continue
			}
			v, err := p.build(groupsOf(text, idx))
			if err != nil {
				continue
			}
			taken = append(taken, [2]int{idx[0], idx[1]})
			hits = append(hits, hit{start: idx[0], v: v})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	out := make([]Value, len(hits))
	for i, h := range hits {
		out[i] = h.v
	}
	return out
}

// First returns the first calendar value in text, if any.
func First(text string) (Value, bool) {
	vs := Scan(text)
	if len(vs) == 0 {
		return nil, false
	}
	return vs[0], true
}

func overlapsAny(taken [][2]int, start, end int) bool {
	for _, t := range taken {
		if start < t[1] && t[0] < end {
			return true
		}
	}
	return false
}

func groupsOf(text string, idx []int) []string {
	g := make([]string, 0, len(idx)/2-1)
	for i := 2; i < len(idx); i += 2 {
		if idx[i] < 0 {
			g = append(g, "")
			continue
		}
		g = append(g, text[idx[i]:idx[i+1]])
	}
	return g
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func buildDate(g []string, active bool) (Value, error) {
	d, err := NewDate(atoi(g[0]), month(g[1]), atoi(g[2]), active)
	if err != nil {
		return nil, err
	}
	return wrapRepeater(d, g[3:])
}

func buildDateTime(g []string, active bool) (Value, error) {
	dt, err := NewDateTime(atoi(g[0]), month(g[1]), atoi(g[2]), atoi(g[3]), atoi(g[4]), active)
	if err != nil {
		return nil, err
	}
	return wrapRepeater(dt, g[5:])
}

func buildDateRange(g []string, active bool) (Value, error) {
	start, err := NewDate(atoi(g[0]), month(g[1]), atoi(g[2]), active)
	if err != nil {
		return nil, err
	}
	end, err := NewDate(atoi(g[3]), month(g[4]), atoi(g[5]), active)
	if err != nil {
		return nil, err
	}
	return NewTimeRange(start, end, active)
}

func buildDateTimeRange(g []string, active bool) (Value, error) {
	start, err := NewDateTime(atoi(g[0]), month(g[1]), atoi(g[2]), atoi(g[3]), atoi(g[4]), active)
	if err != nil {
		return nil, err
	}
	end, err := NewDateTime(atoi(g[5]), month(g[6]), atoi(g[7]), atoi(g[8]), atoi(g[9]), active)
	if err != nil {
		return nil, err
	}
	return NewTimeRange(start, end, active)
}

func buildSameDayRange(g []string, active bool) (Value, error) {
	start, err := NewDateTime(atoi(g[0]), month(g[1]), atoi(g[2]), atoi(g[3]), atoi(g[4]), active)
	if err != nil {
		return nil, err
	}
	end, err := NewDateTime(atoi(g[0]), month(g[1]), atoi(g[2]), atoi(g[5]), atoi(g[6]), active)
	if err != nil {
		return nil, err
	}
	return NewTimeRange(start, end, active)
}

// wrapRepeater wraps v in a Repeated when the optional repeater groups
// (full match, period, unit) matched.
func wrapRepeater(v Value, rep []string) (Value, error) {
	if len(rep) < 3 || rep[0] == "" {
		return v, nil
	}
	unit, err := ParseUnit(rep[2])
	if err != nil {
		return nil, err
	}
	return NewRepeated(v, atoi(rep[1]), unit)
}

func month(s string) time.Month { return time.Month(atoi(s)) }
