package redisx

import "time"

const (
	// Published menu cache: menu:{date}:{meal} -> JSON menu payload
	KeyMenu = "menu:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Daily dining counters: dining:stats:{date}, hash field {meal}:{confirmation_type}
	KeyDailyStats = "dining:stats:%s"
)

var (
	TTLDedup      = 48 * time.Hour
	TTLDailyStats = 14 * 24 * time.Hour
)
