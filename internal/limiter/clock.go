package limiter

import "time"

var timeNow = time.Now
