package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/stocklane-erp/stocklane/testing"
)

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"})

	logger.Info("stock level updated", "product_id", 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "stock level updated", record["msg"])
	require.Equal(t, "stocklane", record["app"])
}

func TestLoggerPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "pretty"})

	logger.Debug("resolving permissions")

	out := buf.String()
	require.Contains(t, out, "resolving permissions")
	var record map[string]any
	require.Error(t, json.Unmarshal(buf.Bytes(), &record))
}

func TestLoggerProductionSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"})

	logger.Debug("noise")
	require.Empty(t, buf.String())
}
