package formflow

import "github.com/tendant/simple-auth/pkg/protocol"

// Stage identifies where in response handling an interceptor runs.
type Stage string

const (
	// StageResponse runs when a response envelope arrives, before it is
	// classified or applied to the form state.
	StageResponse Stage = "response"
	// StageSubmit runs before a submit operation calls the gateway.
	StageSubmit Stage = "submit"
)

// Checkpoint carries the controller state offered to an interceptor.
type Checkpoint struct {
	Stage Stage
	Form  FormModel
	// Response is the envelope being handled. Nil at StageSubmit.
	Response *protocol.Response
}

// Interceptor inspects a checkpoint and returns false to abort the
// default handling at that stage.
type Interceptor func(Checkpoint) bool
