package broadcast

import "fmt"

// Broadcast topics are namespaced per club. NATS subjects use dot-separated
// tokens, so the audience segment follows the slug directly.
const (
	audiencePublic        = "public"
	audienceAdmin         = "admin"
	audienceAdminActivity = "admin.activity"
)

// PublicTopic is the race display topic for spectators and riders.
func PublicTopic(clubSlug string) string {
	return topic(clubSlug, audiencePublic)
}

// AdminTopic carries admin counters, validation state, and live notifications.
func AdminTopic(clubSlug string) string {
	return topic(clubSlug, audienceAdmin)
}

// AdminActivityTopic carries the admin activity feed.
func AdminActivityTopic(clubSlug string) string {
	return topic(clubSlug, audienceAdminActivity)
}

func topic(clubSlug, audience string) string {
	return fmt.Sprintf("club.%s.%s", clubSlug, audience)
}
