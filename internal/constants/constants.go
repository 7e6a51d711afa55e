package constants

const (
	// Session
	SessionCookieName = "todo_session"
	ContextKeyUserID  = "user_id"
	ContextKeyUser    = "current_user"
	ContextKeyTask    = "task"

	// Accounts
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6

	// Tasks
	MaxContentLength = 200
	DueDateLayout    = "2006-01-02"

	// Suggestions
	MaxSuggestedTasks    = 10
	MaxSuggestTextLength = 4000
)
