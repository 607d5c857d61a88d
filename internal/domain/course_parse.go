package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// weekdayOrder maps a weekday kanji to its index, 月 through 日.
var weekdayOrder = []rune("月火水木金土日")

func weekdayIndex(s string) (int, bool) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, false
	}
	for i, w := range weekdayOrder {
		if w == runes[0] {
			return i, true
		}
	}
	return 0, false
}

var periodPattern = regexp.MustCompile(`^(\d+)時限$`)

// ParseCourseSchedules splits a course's raw schedule string into
// CourseSchedule field sets. A leading '通年' (full year) head
// expands into both semesters ('前期' and '後期'); otherwise the head is a
// 2-character semester marker ('前期' or '後期'/'複' variants), followed by
// weekday/period pairs.
func ParseCourseSchedules(year int, raw string) ([]CourseSchedule, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return nil, nil
	}

	head, rest := parts[0], parts[1:]

	if head == "通年" {
		var out []CourseSchedule
		for _, semesterHead := range []string{"前期", "後期"} {
			expanded, err := ParseCourseSchedules(year, strings.Join(append([]string{semesterHead}, rest...), " "))
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		}
		return out, nil
	}

	headRunes := []rune(head)
	if len(headRunes) != 2 {
		return nil, fmt.Errorf("invalid schedule head %q", head)
	}
	var semester int
	switch headRunes[0] {
	case '前':
		semester = 0
	case '後':
		semester = 1
	default:
		return nil, fmt.Errorf("invalid schedule semester marker %q", head)
	}

	if len(rest)%2 != 0 {
		return nil, fmt.Errorf("schedule weekday/period pairs unbalanced: %q", raw)
	}

	var out []CourseSchedule
	for i := 0; i < len(rest); i += 2 {
		weekdayStr, periodStr := rest[i], rest[i+1]

		weekday, ok := weekdayIndex(weekdayStr)
		if !ok {
			return nil, fmt.Errorf("invalid weekday %q", weekdayStr)
		}

		m := periodPattern.FindStringSubmatch(periodStr)
		if m == nil {
			return nil, fmt.Errorf("invalid period %q", periodStr)
		}
		period, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid period %q: %w", periodStr, err)
		}

		out = append(out, CourseSchedule{
			Year:     courseYearOrNil(year),
			Semester: semester,
			Weekday:  weekday,
			Period:   period,
		})
	}
	return out, nil
}

// courseScheduleYearNone is the sentinel the site uses for "no specific
// year"; it is normalized to a null year here.
const courseScheduleYearNone = 1111

func courseYearOrNil(year int) *int {
	if year == courseScheduleYearNone {
		return nil
	}
	y := year
	return &y
}

// ParseCourseInstructors splits a course's 、-separated instructor string
// into individual names.
func ParseCourseInstructors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, "、") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
