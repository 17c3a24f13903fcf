package dialog

import "context"

// Session represents the state of one user's conversation with the bot.
// It is the explicit context object passed into every dialog step; no dialog
// state lives in package-level variables.
type Session struct {
	// UserID is the external identity of the conversation partner
	UserID string

	// State names the dialog step the conversation currently waits in
	State string

	// Draft is the case data collected so far
	Draft *Draft

	// Updated is the unix timestamp of the last session mutation, used by the
	// storage driver to expire abandoned conversations
	Updated int64
}

// Step is one stage of the conversational flow. The flow engine itself is an
// external collaborator of this module; it drives steps and owns all
// user-facing messaging.
type Step interface {
	// Handle processes one user input in the context of the given session and
	// returns the name of the next step
	Handle(ctx context.Context, session *Session, input string) (next string, err error)
}
