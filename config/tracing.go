package config

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer mirrors the teacher's package-level otel.Tracer(...) in server.go —
// one tracer name for the whole service, spans created per cycle/schedule.
var Tracer trace.Tracer = otel.Tracer("xfleet-publisher")
