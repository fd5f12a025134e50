package engine

import "time"

func nowTime() time.Time { return time.Now() }

func msDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
