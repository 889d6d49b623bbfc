package talker

import "SpiritTalk/internal/dialogue"

// LinkRegistry tracks the live continue listeners of the part a talker is
// showing. Each listener is subscribe-once: the first trigger of its link
// advances the talker and later triggers do nothing until the part is shown
// again.
type LinkRegistry struct {
	part  *dialogue.Part
	armed map[string]*dialogue.Event[string]
}

// NewLinkRegistry returns an empty registry.
func NewLinkRegistry() *LinkRegistry {
	return &LinkRegistry{armed: map[string]*dialogue.Event[string]{}}
}

// Arm drops every listener and registers one continue listener per
// ThenContinue responder on part.
func (r *LinkRegistry) Arm(part *dialogue.Part, onContinue func(id string)) {
	r.Reset()
	r.part = part
	if part == nil {
		return
	}
	for _, lr := range part.Links {
		if !lr.ThenContinue {
			continue
		}
		ev := &dialogue.Event[string]{}
		ev.Once(onContinue)
		r.armed[lr.ID] = ev
	}
}

// Trigger fires the continue listener for id if it is still armed.
func (r *LinkRegistry) Trigger(id string) bool {
	ev, ok := r.armed[id]
	if !ok || ev.Len() == 0 {
		return false
	}
	ev.Fire(id)
	return true
}

// Live reports whether id still has an armed continue listener.
func (r *LinkRegistry) Live(id string) bool {
	ev, ok := r.armed[id]
	return ok && ev.Len() > 0
}

// Part returns the part the registry was last armed for.
func (r *LinkRegistry) Part() *dialogue.Part { return r.part }

// Reset drops every listener.
func (r *LinkRegistry) Reset() {
	for id, ev := range r.armed {
		ev.Clear()
		delete(r.armed, id)
	}
	r.part = nil
}
