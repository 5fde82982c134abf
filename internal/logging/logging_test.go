package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schemagate/internal/config"
	"github.com/aqasim81/schemagate/internal/logging"
)

func TestNew_jsonFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logging.New(config.Log{Level: logrus.InfoLevel, Format: "json"}, &buf)
	logger.WithField("changeset", "a.yml::1::alice").Info("applied")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "applied", entry["msg"])
	assert.Equal(t, "a.yml::1::alice", entry["changeset"])
}

func TestNew_levelFiltersEntries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logging.New(config.Log{Level: logrus.WarnLevel, Format: "text"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
