package server

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"SpiritTalk/internal/dialogue"
)

func TestMetricsObserveRoomActivity(t *testing.T) {
	rooms := 3
	m := NewMetrics(func() int { return rooms })

	m.LineShown("r", "moss")
	m.LineShown("r", "moss")
	m.ConversationStarted("r", "moss")
	m.LinkTriggered("r", "moss", "who")
	m.Collected("r", "acorn-1")
	m.ActionApplied("r", dialogue.Action{Kind: dialogue.ActionFlag, Value: "x"})
	m.reloaded(true)
	m.reloaded(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lines.WithLabelValues("moss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversations.WithLabelValues("moss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.links.WithLabelValues("moss", "who")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collected.WithLabelValues("acorn-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("flag")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloads.WithLabelValues("error")))

	n, err := testutil.GatherAndCount(m.reg, "spirittalk_rooms")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
