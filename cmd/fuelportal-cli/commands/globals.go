package commands

import (
	"context"
	"myfuelportal-backend/internal/components/telemetry"
	"myfuelportal-backend/internal/credentials"
)

type globalsKey struct{}

type globals struct {
	config  Config
	tel     telemetry.API
	otel    telemetry.Otel
	keyring credentials.Keyring
}

func setGlobals(ctx context.Context, value *globals) context.Context {
	return context.WithValue(ctx, globalsKey{}, value)
}

func getGlobals(ctx context.Context) *globals {
	return ctx.Value(globalsKey{}).(*globals)
}
