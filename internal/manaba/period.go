package manaba

import "fmt"

// homeURLFormat builds the course-list home URL. The period suffix
// strings below carry their own leading underscore for non-current
// periods, so the declared course_list path pattern (/ct/home_(_[a-z]+)?)
// matches all three generated paths: /ct/home_, /ct/home__past,
// /ct/home__upcoming.
const homeURLFormat = "https://" + Host + "/ct/home_%s?chglistformat=list"

// Period suffixes for the three course-list variants the crawler seeds as
// initial URLs.
const (
	PeriodCurrent  = ""
	PeriodPast     = "_past"
	PeriodUpcoming = "_upcoming"
)

// AllPeriods lists every declared period suffix in the order initial URLs
// are generated.
var AllPeriods = []string{PeriodCurrent, PeriodPast, PeriodUpcoming}

// HomeURL builds the course-list URL for a given period suffix.
func HomeURL(periodSuffix string) string {
	return fmt.Sprintf(homeURLFormat, periodSuffix)
}

// InitialURLs returns the course-list URLs for every declared period, in
// the order the crawler seeds them as root tasks.
func InitialURLs() []string {
	urls := make([]string, len(AllPeriods))
	for i, period := range AllPeriods {
		urls[i] = HomeURL(period)
	}
	return urls
}
