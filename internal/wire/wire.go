//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/code-reviser/internal/app"
)

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(AppSet)
	return &app.App{}, nil, nil
}

func InitializeRunner(ctx context.Context) (*app.Runner, func(), error) {
	wire.Build(RevisionSet, app.NewRunner)
	return &app.Runner{}, nil, nil
}
