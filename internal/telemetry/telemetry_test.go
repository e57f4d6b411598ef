package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoneIsNoop(t *testing.T) {
	shutdown, err := Init("workforce", "test", Config{Exporter: ExporterNone})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init("workforce", "test", Config{Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestInit_OTLPRequiresEndpoint(t *testing.T) {
	_, err := Init("workforce", "test", Config{Exporter: ExporterOTLP})
	assert.EqualError(t, err, "otlp endpoint is required")
}
