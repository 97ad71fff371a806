package telemetry

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/bacalhau-project/tiercache/pkg/version"
)

const (
	serviceName = "tiercache"

	otlpEndpoint        = "OTEL_EXPORTER_OTLP_ENDPOINT"
	otlpMetricsEndpoint = "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"
	otlpProtocol        = "OTEL_EXPORTER_OTLP_PROTOCOL"
	otlpMetricsProtocol = "OTEL_EXPORTER_OTLP_METRICS_PROTOCOL"
	disableMetrics      = "TIERCACHE_DISABLE_METRICS"

	otlpProtocolHTTP = "http/protobuf"
	otlpProtocolGrpc = "grpc"
)

func SetupFromEnvs() {
	newMeterProvider()

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Err(err).Msg("Error occurred while exporting metrics")
	}))
}

// Cleanup flushes the remaining metrics in memory to the exporter and releases any telemetry resources.
func Cleanup() error {
	if err := cleanupMeterProvider(); err != nil {
		return errors.Wrap(err, "meter cleanup error")
	}
	return nil
}

// newResource returns a resource describing this application.
func newResource() *resource.Resource {
	res, err := resource.Merge(
		resource.Environment(),
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version.Get().GitVersion),
		),
	)

	if err != nil {
		log.Error().Err(err).Msg("failed to create otel resource. Falling back to default resource config")
		res = resource.Default()
	}
	return res
}
