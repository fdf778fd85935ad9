// Package pvp_in defines the inbound command and query interfaces of the
// pvp context, plus their DTOs.
package pvp_in

import "context"

// ValidationError reports a rejected command or query field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// JoinQueueCommand enters the authenticated player into the matchmaking
// queue. ConnID is optional transport metadata.
type JoinQueueCommand struct {
	UserID   string
	Username string
	ConnID   string
}

func (c *JoinQueueCommand) Validate() error {
	if c.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "user_id is required"}
	}
	if c.Username == "" {
		return &ValidationError{Field: "username", Message: "username is required"}
	}
	return nil
}

// QueueStatusDTO is the response to queue mutations.
type QueueStatusDTO struct {
	QueueID   string `json:"queueId"`
	QueueSize int    `json:"queueSize"`
}

// JoinQueueCommandHandler admits a player to the queue. Returns
// domain.ErrAlreadyInQueue when the player already holds an entry.
type JoinQueueCommandHandler interface {
	Exec(ctx context.Context, cmd JoinQueueCommand) (*QueueStatusDTO, error)
}

// LeaveQueueCommand removes the authenticated player from the queue.
type LeaveQueueCommand struct {
	UserID string
}

func (c *LeaveQueueCommand) Validate() error {
	if c.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "user_id is required"}
	}
	return nil
}

// LeaveQueueCommandHandler removes a player from the queue. Returns
// domain.ErrNotInQueue when no entry exists.
type LeaveQueueCommandHandler interface {
	Exec(ctx context.Context, cmd LeaveQueueCommand) error
}
