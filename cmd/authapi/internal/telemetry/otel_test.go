package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/config"
)

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), config.ObservabilityConfig{ServiceName: "authapi"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	res := newResource(config.ObservabilityConfig{
		ServiceName:    "authapi",
		ServiceVersion: "1.2.3",
		Environment:    "test",
	})

	name, ok := res.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "authapi", name.AsString())

	env, ok := res.Set().Value(attribute.Key("deployment.environment"))
	require.True(t, ok)
	assert.Equal(t, "test", env.AsString())
}
