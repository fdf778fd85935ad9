package pvp_out

// Server-to-client event names. The pvp: namespace is canonical; the
// uppercase room broadcasts are kept for client compatibility.
const (
	EventQueueJoined      = "pvp:queue_joined"
	EventQueueLeft        = "pvp:queue_left"
	EventQueueStatus      = "pvp:queue_status"
	EventQueueTimeout     = "pvp:queue_timeout"
	EventMatchFound       = "pvp:match_found"
	EventGameStart        = "pvp:game_start"
	EventOpponentProgress = "pvp:opponent_progress"
	EventMatchResult      = "pvp:match_result"
	EventMatchTimeout     = "pvp:match_timeout"

	EventOpponentFinished    = "OPPONENT_FINISHED"
	EventOpponentForfeited   = "OPPONENT_FORFEITED"
	EventOpponentReconnected = "OPPONENT_RECONNECTED"

	EventError = "error"
)

// MatchRoom returns the logical room id for match-scoped broadcasts.
func MatchRoom(matchID string) string { return "match:" + matchID }
