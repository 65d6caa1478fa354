package redisx

import "time"

const (
	// Live stock summary per release: stock:live:{release_id} -> JSON map
	KeyLiveStock = "stock:live:%s"

	// Cached release record for fast GETs: release:{release_id} -> JSON
	KeyRelease = "release:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Notification throttle window: throttle:{user_id}:{rule_type}
	KeyThrottle = "throttle:%s:%s"
)

var (
	TTLLiveStock = 10 * time.Minute
	TTLRelease   = 5 * time.Minute
	TTLDedup     = 48 * time.Hour
)
