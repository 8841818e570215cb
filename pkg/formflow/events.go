package formflow

import (
	"github.com/tendant/simple-auth/pkg/gateway"
	"github.com/tendant/simple-auth/pkg/protocol"
)

// FormModel is the consumer-visible snapshot of the controller's form
// state, attached to every response event.
type FormModel struct {
	Form          protocol.FormKind `json:"form"`
	Visible       bool              `json:"visible"`
	Transitioning bool              `json:"transitioning"`
	ShowCodeEntry bool              `json:"show_code_entry"`
	Error         string            `json:"error,omitempty"`
	Prompt        string            `json:"prompt,omitempty"`
	Rows          []Row             `json:"rows,omitempty"`
}

// Events are the consumer-visible callbacks. Any field may be nil.
type Events struct {
	// Ready fires when a form is about to display.
	Ready func()
	// Connecting fires with true when a gateway call starts and false
	// when the connection completes.
	Connecting func(bool)
	// Authenticated fires with the derived profile on successful
	// authentication, and with nil on logout.
	Authenticated func(*gateway.Profile)
	// Response fires with the raw envelope and the form model after
	// every classified response.
	Response func(*protocol.Response, FormModel)
	// UsernameEntered fires when a login attempt begins.
	UsernameEntered func(string)
	// Navigate fires with the federated authorize URL when the
	// federated sign-in form activates; the embedder performs the
	// actual redirect.
	Navigate func(string)
}

func (e Events) emitReady() {
	if e.Ready != nil {
		e.Ready()
	}
}

func (e Events) emitConnecting(connecting bool) {
	if e.Connecting != nil {
		e.Connecting(connecting)
	}
}

func (e Events) emitAuthenticated(profile *gateway.Profile) {
	if e.Authenticated != nil {
		e.Authenticated(profile)
	}
}

func (e Events) emitResponse(resp *protocol.Response, model FormModel) {
	if e.Response != nil {
		e.Response(resp, model)
	}
}

func (e Events) emitUsernameEntered(username string) {
	if e.UsernameEntered != nil {
		e.UsernameEntered(username)
	}
}

func (e Events) emitNavigate(url string) {
	if e.Navigate != nil {
		e.Navigate(url)
	}
}
