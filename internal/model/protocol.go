package model

import "encoding/json"

// Request is one inbound envelope on the persistent connection.
type Request struct {
	ID    string          `json:"id"`
	Token string          `json:"token"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Response is one outbound envelope. ID echoes the originating request for
// request/response pairs and is freshly generated for server-originated
// pushes.
type Response struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Subtype string         `json:"subtype,omitempty"`
	Module  Module         `json:"module,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// RequestIDUnknown is used when a response cannot be correlated because the
// inbound payload never parsed into a request.
const RequestIDUnknown = "UNKNOWN"

// Event names dispatched by the protocol engine.
const (
	EventRegisterDataListener   = "register_data_listener"
	EventUnregisterDataListener = "unregister_data_listener"
	EventGetData                = "get_data"
	EventExitApplication        = "exit_application"
	EventKeyboardKeypress       = "keyboard_keypress"
	EventKeyboardText           = "keyboard_text"
	EventMediaControl           = "media_control"
	EventNotification           = "notification"
	EventOpen                   = "open"
	EventPowerSleep             = "power_sleep"
	EventPowerHibernate         = "power_hibernate"
	EventPowerRestart           = "power_restart"
	EventPowerShutdown          = "power_shutdown"
	EventPowerLock              = "power_lock"
	EventPowerLogout            = "power_logout"
)

// Response types.
const (
	TypeError                    = "error"
	TypeDataGet                  = "data_get"
	TypeDataUpdate               = "data_update"
	TypeDataListenerRegistered   = "data_listener_registered"
	TypeDataListenerUnregistered = "data_listener_unregistered"
	TypeApplicationExiting       = "application_exiting"
	TypeKeyboardKeyPressed       = "keyboard_key_pressed"
	TypeKeyboardTextSent         = "keyboard_text_sent"
	TypeMediaControlled          = "media_controlled"
	TypeNotificationSent         = "notification_sent"
	TypeOpened                   = "opened"
	TypePowerSleeping            = "power_sleeping"
	TypePowerHibernating         = "power_hibernating"
	TypePowerRestarting          = "power_restarting"
	TypePowerShuttingDown        = "power_shuttingdown"
	TypePowerLocking             = "power_locking"
	TypePowerLoggingOut          = "power_loggingout"
)

// Error subtypes.
const (
	SubtypeBadJSON                   = "bad_json"
	SubtypeBadRequest                = "bad_request"
	SubtypeBadToken                  = "bad_token"
	SubtypeMissingModules            = "missing_modules"
	SubtypeMissingKey                = "missing_key"
	SubtypeMissingText               = "missing_text"
	SubtypeMissingTitle              = "missing_title"
	SubtypeMissingAction             = "missing_action"
	SubtypeMissingValue              = "missing_value"
	SubtypeMissingPathURL            = "missing_path_url"
	SubtypeInvalidAction             = "invalid_action"
	SubtypeListenerAlreadyRegistered = "listener_already_registered"
	SubtypeListenerNotRegistered     = "listener_not_registered"
	SubtypeUnknownEvent              = "unknown_event"
)

// Event payloads.

type ModulesPayload struct {
	Modules []string `json:"modules"`
}

type KeyboardKeyPayload struct {
	Key string `json:"key"`
}

type KeyboardTextPayload struct {
	Text string `json:"text"`
}

type MediaControlPayload struct {
	Action string   `json:"action"`
	Value  *float64 `json:"value,omitempty"`
}

type NotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

type OpenPayload struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

// MediaAction values accepted by the media_control event.
const (
	MediaActionPlay        = "play"
	MediaActionPause       = "pause"
	MediaActionStop        = "stop"
	MediaActionPrevious    = "previous"
	MediaActionNext        = "next"
	MediaActionSeek        = "seek"
	MediaActionRewind      = "rewind"
	MediaActionFastForward = "fastforward"
	MediaActionShuffle     = "shuffle"
	MediaActionRepeat      = "repeat"
	MediaActionMute        = "mute"
	MediaActionVolumeDown  = "volumedown"
	MediaActionVolumeUp    = "volumeup"
)

var mediaActions = map[string]struct{}{
	MediaActionPlay:        {},
	MediaActionPause:       {},
	MediaActionStop:        {},
	MediaActionPrevious:    {},
	MediaActionNext:        {},
	MediaActionSeek:        {},
	MediaActionRewind:      {},
	MediaActionFastForward: {},
	MediaActionShuffle:     {},
	MediaActionRepeat:      {},
	MediaActionMute:        {},
	MediaActionVolumeDown:  {},
	MediaActionVolumeUp:    {},
}

// IsMediaAction reports whether action is one of the supported media actions.
func IsMediaAction(action string) bool {
	_, ok := mediaActions[action]
	return ok
}

// MediaActionNeedsValue reports whether the action requires a value field.
func MediaActionNeedsValue(action string) bool {
	switch action {
	case MediaActionSeek, MediaActionShuffle, MediaActionRepeat:
		return true
	}
	return false
}
