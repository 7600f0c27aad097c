package pipeline

// State is one stop in the acquisition state machine. A run visits
// states strictly forward; Failed is terminal and reachable from any
// stage.
type State string

const (
	StateStart           State = "start"
	StateResolvingRef    State = "resolving_ref"
	StateTryingSubtitles State = "trying_subtitles"
	StateTryingMedia     State = "trying_media_download"
	StateTryingAPI       State = "trying_external_api"
	StateTranscribing    State = "transcribing"
	StateDone            State = "done"
	StateFailed          State = "failed"
)
