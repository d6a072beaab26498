package timezone

import (
	"time"
	_ "time/tzdata"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		panic(err)
	}
}

// the portal and its users live in China, log times are shown there
// regardless of where the pusher runs
func Now() time.Time {
	return time.Now().In(Location)
}

func Format(t time.Time) string {
	return t.In(Location).Format(time.DateTime)
}
