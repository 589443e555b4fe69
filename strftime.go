package main

import (
	"strconv"
	"strings"
	"time"
)

// resolveDate replaces strftime format tokens in the string with their
// corresponding time values. Go's time.Format is not used on the whole
// string because commands are full of characters it treats as layout.
func resolveDate(format string, t time.Time) string {
	if !strings.Contains(format, "%") {
		return format
	}
	r := strings.NewReplacer(
		"%%", "%",
		"%Y", t.Format("2006"),
		"%y", t.Format("06"),
		"%m", t.Format("01"),
		"%d", t.Format("02"),
		"%e", t.Format("_2"),
		"%j", t.Format("002"),
		"%H", t.Format("15"),
		"%I", t.Format("03"),
		"%M", t.Format("04"),
		"%S", t.Format("05"),
		"%p", t.Format("PM"),
		"%a", t.Format("Mon"),
		"%A", t.Format("Monday"),
		"%b", t.Format("Jan"),
		"%B", t.Format("January"),
		"%Z", t.Format("MST"),
		"%s", strconv.FormatInt(t.Unix(), 10),
	)
	return r.Replace(format)
}
