package platformtest

import (
	"context"
	"sync"

	"github.com/majstudio/community-bot/internal/platform"
)

// Response kinds recorded by Responder.
const (
	KindReply    = "reply"
	KindDefer    = "defer"
	KindEdit     = "edit"
	KindFollowUp = "followup"
	KindUpdate   = "update"
	KindModal    = "modal"
)

// Response is one recorded interaction answer.
type Response struct {
	Kind      string
	Message   platform.Message
	Ephemeral bool
	Modal     platform.Modal
}

// Responder records every answer given to an interaction.
type Responder struct {
	mu        sync.Mutex
	Responses []Response
	acked     bool
	Err       error
}

func (r *Responder) record(resp Response, ack bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Responses = append(r.Responses, resp)
	if ack {
		r.acked = true
	}
	return nil
}

func (r *Responder) Reply(_ context.Context, msg platform.Message, ephemeral bool) error {
	return r.record(Response{Kind: KindReply, Message: msg, Ephemeral: ephemeral}, true)
}

func (r *Responder) Defer(_ context.Context, ephemeral bool) error {
	return r.record(Response{Kind: KindDefer, Ephemeral: ephemeral}, true)
}

func (r *Responder) Edit(_ context.Context, msg platform.Message) error {
	return r.record(Response{Kind: KindEdit, Message: msg}, false)
}

func (r *Responder) FollowUp(_ context.Context, msg platform.Message, ephemeral bool) error {
	return r.record(Response{Kind: KindFollowUp, Message: msg, Ephemeral: ephemeral}, false)
}

func (r *Responder) Update(_ context.Context, msg platform.Message) error {
	return r.record(Response{Kind: KindUpdate, Message: msg}, true)
}

func (r *Responder) ShowModal(_ context.Context, modal platform.Modal) error {
	return r.record(Response{Kind: KindModal, Modal: modal}, true)
}

func (r *Responder) Acknowledged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acked
}

// Last returns the most recent response, or the zero value.
func (r *Responder) Last() Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Responses) == 0 {
		return Response{}
	}
	return r.Responses[len(r.Responses)-1]
}

// Kinds lists the recorded response kinds in order.
func (r *Responder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.Responses))
	for _, resp := range r.Responses {
		kinds = append(kinds, resp.Kind)
	}
	return kinds
}

var _ platform.Responder = (*Responder)(nil)
