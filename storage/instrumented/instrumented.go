// Package instrumented decorates a storage backend with OpenTelemetry traces
// and metrics.
package instrumented

import (
	"context"
	"fmt"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/goliatone/go-persistedstate/storage"

// Backend is the storage contract being decorated.
type Backend interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
}

type remover interface {
	RemoveItem(key string) error
}

var (
	readDirection  = metric.WithAttributes(attribute.String("io.direction", "read"))
	writeDirection = metric.WithAttributes(attribute.String("io.direction", "write"))
)

// Storage wraps Next, recording a span per call plus payload size and
// operation counters.
type Storage struct {
	next   Backend
	name   string
	ctx    context.Context
	tracer trace.Tracer

	operations metric.Int64Counter
	errors     metric.Int64Counter
	dataIO     metric.Int64Counter
	valueSize  metric.Int64Histogram
}

type config struct {
	name           string
	ctx            context.Context
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures the decorator.
type Option func(*config)

// WithName labels spans and metrics with a backend name, e.g. "sqlite".
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithContext sets the context spans are started from.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// WithTracerProvider sets the tracer provider. Defaults to a no-op provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider. Defaults to a no-op provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = mp
	}
}

// Wrap returns next decorated with telemetry.
func Wrap(next Backend, opts ...Option) (*Storage, error) {
	cfg := config{ctx: context.Background()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = nooptrace.NewTracerProvider()
	}
	if cfg.meterProvider == nil {
		cfg.meterProvider = noopmetric.NewMeterProvider()
	}
	if cfg.name == "" {
		cfg.name = fmt.Sprintf("%T", next)
	}

	meter := cfg.meterProvider.Meter(instrumentationName)
	s := &Storage{
		next:   next,
		name:   cfg.name,
		ctx:    cfg.ctx,
		tracer: cfg.tracerProvider.Tracer(instrumentationName),
	}

	var err error
	if s.operations, err = meter.Int64Counter(
		"persistedstate.storage.operations",
		metric.WithDescription("The number of storage operations performed."),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, err
	}
	if s.errors, err = meter.Int64Counter(
		"persistedstate.storage.errors",
		metric.WithDescription("The number of storage operations that failed."),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if s.dataIO, err = meter.Int64Counter(
		"persistedstate.storage.io",
		metric.WithDescription("The cumulative size of the payloads read and written."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if s.valueSize, err = meter.Int64Histogram(
		"persistedstate.storage.value.size",
		metric.WithDescription("The sizes of the payloads read and written."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	return s, nil
}

// Unwrap returns the decorated backend.
func (s *Storage) Unwrap() Backend {
	return s.next
}

func (s *Storage) GetItem(key string) (string, bool, error) {
	ctx, span := s.start("storage.get", key)
	defer span.End()

	v, ok, err := s.next.GetItem(key)
	if err != nil {
		s.fail(ctx, span, "get", err)
		return "", false, err
	}

	span.SetAttributes(attribute.Bool("key_present", ok))
	s.operations.Add(ctx, 1, s.opAttrs("get"))
	if ok {
		size := int64(len(v))
		span.SetAttributes(attribute.Int64("value_size", size))
		s.dataIO.Add(ctx, size, readDirection)
		s.valueSize.Record(ctx, size, readDirection)
	}
	return v, ok, nil
}

func (s *Storage) SetItem(key, value string) error {
	size := int64(len(value))
	ctx, span := s.start("storage.set", key, attribute.Int64("value_size", size))
	defer span.End()

	if err := s.next.SetItem(key, value); err != nil {
		s.fail(ctx, span, "set", err)
		return err
	}

	s.operations.Add(ctx, 1, s.opAttrs("set"))
	s.dataIO.Add(ctx, size, writeDirection)
	s.valueSize.Record(ctx, size, writeDirection)
	return nil
}

// RemoveItem forwards to the decorated backend when it supports removal.
func (s *Storage) RemoveItem(key string) error {
	r, ok := s.next.(remover)
	if !ok {
		return fmt.Errorf("instrumented: %s does not support remove", s.name)
	}

	ctx, span := s.start("storage.remove", key)
	defer span.End()

	if err := r.RemoveItem(key); err != nil {
		s.fail(ctx, span, "remove", err)
		return err
	}
	s.operations.Add(ctx, 1, s.opAttrs("remove"))
	return nil
}

func (s *Storage) start(name, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("storage.backend", s.name), attribute.Int("key_size", len(key)))
	if isShortPrintable(key) {
		attrs = append(attrs, attribute.String("key", key))
	}
	return s.tracer.Start(s.ctx, name, trace.WithAttributes(attrs...))
}

func (s *Storage) fail(ctx context.Context, span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.errors.Add(ctx, 1, s.opAttrs(op))
}

func (s *Storage) opAttrs(op string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("storage.backend", s.name),
		attribute.String("operation", op),
	)
}

func isShortPrintable(s string) bool {
	if len(s) > 128 {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
