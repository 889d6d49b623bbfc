package talker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SpiritTalk/internal/dialogue"
)

func TestLinkRegistryArmsContinueRespondersOnly(t *testing.T) {
	p := &dialogue.Part{Links: []*dialogue.LinkResponder{
		{ID: "go", ThenContinue: true},
		{ID: "look"},
	}}
	r := NewLinkRegistry()
	var fired []string
	r.Arm(p, func(id string) { fired = append(fired, id) })

	assert.Same(t, p, r.Part())
	assert.True(t, r.Live("go"))
	assert.False(t, r.Live("look"))

	assert.False(t, r.Trigger("look"))
	assert.True(t, r.Trigger("go"))
	assert.False(t, r.Trigger("go"))
	assert.Equal(t, []string{"go"}, fired)
}

func TestLinkRegistryRearmReplacesListeners(t *testing.T) {
	p := &dialogue.Part{Links: []*dialogue.LinkResponder{{ID: "go", ThenContinue: true}}}
	r := NewLinkRegistry()
	calls := 0
	r.Arm(p, func(string) { calls++ })
	r.Arm(p, func(string) { calls++ })

	r.Trigger("go")
	r.Trigger("go")
	assert.Equal(t, 1, calls)

	r.Arm(p, func(string) { calls++ })
	r.Reset()
	assert.False(t, r.Live("go"))
	assert.Nil(t, r.Part())
	assert.False(t, r.Trigger("go"))
	assert.Equal(t, 1, calls)
}
