package events

const (
	// TopicNavigationEvents carries every session event, keyed by session ID.
	TopicNavigationEvents = "navigation.events"
	// TopicNavigationCommands carries remote commands for live sessions.
	TopicNavigationCommands = "navigation.commands"

	// EventSource is the CloudEvents source of this service.
	EventSource = "service-navigation"
)

// Command event types accepted on TopicNavigationCommands.
const (
	CommandUpdateProps  = "navigation.command.update_props"
	CommandRequestRoute = "navigation.command.request_route"
	CommandCancel       = "navigation.command.cancel"
	CommandToggleMute   = "navigation.command.toggle_mute"
	CommandLocation     = "navigation.command.location"
	CommandClose        = "navigation.command.close"
)

// EventTypePrefix is prepended to navigation event names for CloudEvent types,
// e.g. "navigation.onRouteProgressChanged".
const EventTypePrefix = "navigation."
