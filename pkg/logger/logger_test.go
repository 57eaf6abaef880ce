package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-cube/paper-manager/internal/config"
)

func TestConfigure_WritesJSONToConsoleAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "app.log")
	var console bytes.Buffer
	log := logrus.New()

	Configure(log, config.LogConfig{Level: "debug", File: file, MaxSize: 1}, &console)
	log.WithField("scope", "paper").Debug("分类已加载")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(console.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "paper", entry["scope"])

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "分类已加载")
}

func TestConfigure_BadLevelFallsBackToInfo(t *testing.T) {
	log := logrus.New()

	Configure(log, config.LogConfig{Level: "verbose"}, nil)

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
