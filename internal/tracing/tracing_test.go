package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	tr, err := InitTracing(Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tr)

	ctx, span := StartSpan(context.Background(), "test", attribute.Int64("user_id", 1))
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())

	End(span, errors.New("ignored"))
	assert.NoError(t, Shutdown(context.Background()))
}
