// Package logger builds the zap SugaredLogger every service shares.
package logger

import (
	"go.uber.org/zap"
)

type Sugared = *zap.SugaredLogger

// New returns a production (JSON) logger for env "prod" and a development
// (console) logger otherwise. Auth failure reasons and clause names only
// appear in these logs, never in responses, so dev keeps them readable.
func New(env string) Sugared {
	var z *zap.Logger
	if env == "prod" {
		z, _ = zap.NewProduction()
	} else {
		z, _ = zap.NewDevelopment()
	}
	return z.Sugar()
}
