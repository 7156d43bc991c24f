package mocks

import (
	"context"

	"hotel/infras/otel"
)

type noopOtel struct{}

// NewOtel returns a tracer whose scopes drop everything. Services and
// handlers under test take it in place of the OTLP-backed implementation.
func NewOtel() otel.Otel {
	return noopOtel{}
}

func (noopOtel) NewScope(ctx context.Context, _, _ string) (context.Context, otel.Scope) {
	return ctx, NewScope()
}

type noopScope struct{}

func NewScope() otel.Scope {
	return noopScope{}
}

func (noopScope) End()                           {}
func (noopScope) TraceError(_ error)             {}
func (noopScope) TraceIfError(_ error)           {}
func (noopScope) AddEvent(_ string)              {}
func (noopScope) SetAttribute(_ string, _ any)   {}
func (noopScope) SetAttributes(_ map[string]any) {}
