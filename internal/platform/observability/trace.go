package observability

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"hrportfolio.dev/web/internal/platform/requestctx"
)

var tracer = otel.Tracer("hrportfolio.dev/web/internal/platform/observability")

// Trace continues an incoming W3C trace context, starts a server span and records the
// identifiers on the request context. The span is renamed to the matched route once the
// handler returns.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		method := SanitizeMethod(r.Method)
		ctx, span := tracer.Start(ctx, method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttributes(r)...),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.IsValid() {
			ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{
				TraceID: sc.TraceID().String(),
				SpanID:  sc.SpanID().String(),
				Sampled: sc.IsSampled(),
			})
		}
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
		span.SetName(method + " " + SanitizeRoute(routePattern(r)))
	})
}

func requestAttributes(r *http.Request) []attribute.KeyValue {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(SanitizeMethod(r.Method)),
		semconv.URLScheme(scheme),
		semconv.URLPath(logSafe(r.URL.Path, 256)),
	}
	if r.Host != "" {
		attrs = append(attrs, semconv.ServerAddress(logSafe(r.Host, 256)))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, semconv.UserAgentOriginal(logSafe(ua, 256)))
	}
	if lang := r.Header.Get("Accept-Language"); lang != "" {
		attrs = append(attrs, attribute.String("http.request.header.accept_language", logSafe(lang, 64)))
	}
	return attrs
}
