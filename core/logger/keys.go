package logger

const (
	keyTime      = "ts"
	keyLevel     = "level"
	keyComponent = "component"
	keyEvent     = "event"
	keyStatus    = "status"
	keyRID       = "rid"
	keyRIDFull   = "rid_full"
)

// defaultOrder puts the fields people scan for first; the rest follow
// alphabetically.
var defaultOrder = []string{
	keyTime, keyLevel, keyComponent, keyEvent, keyStatus, keyRID, keyRIDFull,
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"stage", "action", "cb_key", "outcome", "duration_ms", "replies",
	"day", "views", "posts", "growth_rate", "days_remaining", "tier", "chart",
	"count", "payload", "lang", "username",
	"mode", "listen", "public_url", "http_code",
	"db", "host", "port", "reminders",
	"err", "err_kind", "err_code", "cause", "attempts", "backoff_ms",
}
