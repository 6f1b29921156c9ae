package hub

// Room naming. Rooms are plain string keys; these helpers are the only
// place the naming scheme lives.

const (
	userRoomPrefix  = "user:"
	newsRoomPrefix  = "news:"
	topicRoomPrefix = "topic:"
)

// RoomForUser is the per-identity room every session auto-joins, used
// for user-targeted deliveries that go through room machinery.
func RoomForUser(userID string) string { return userRoomPrefix + userID }

// RoomForCategory maps a content category tag to its interest room.
func RoomForCategory(category string) string { return newsRoomPrefix + category }

// RoomForSubscription computes the room behind a subscribe request.
// subscribe{type:"articles", filters:{category:C}} lands in news:<C>;
// other types get a room of their own under topic:.
func RoomForSubscription(typ string, filters map[string]string) string {
	switch typ {
	case "articles":
		cat := filters["category"]
		if cat == "" {
			cat = "all"
		}
		return RoomForCategory(cat)
	default:
		return topicRoomPrefix + typ
	}
}
