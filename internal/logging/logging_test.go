package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetupWriterLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	assert.Equal(t, zerolog.WarnLevel, SetupWriter(&buf, "WARN", false))
	log.Info().Msg("hidden")
	log.Warn().Str("talker", "moss").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"talker":"moss"`)

	assert.Equal(t, zerolog.InfoLevel, SetupWriter(&buf, "nonsense", false))
	assert.Equal(t, zerolog.InfoLevel, SetupWriter(&buf, "", true))
}
