package constants

// ContextKeyUserID is the key under which the authenticated user ID is stored
// in both the session and the gin context.
const ContextKeyUserID = "user_id"

const (
	MinPasswordLength = 8

	DefaultPageSize = 20
	MinPageSize     = 1
	MaxPageSize     = 100

	// MaxClassifyNodes caps how many mind-map nodes are sent to the AI
	// classification endpoint in a single request.
	MaxClassifyNodes = 50

	// MaxHierarchyWalk bounds ancestor-chain walks so a corrupted parent
	// chain can never loop forever.
	MaxHierarchyWalk = 32
)
