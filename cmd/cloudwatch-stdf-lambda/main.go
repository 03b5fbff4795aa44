package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/lsm/cloudwatch-stdf/internal/app"
	"github.com/lsm/cloudwatch-stdf/internal/awslogs"
	"github.com/lsm/cloudwatch-stdf/internal/config"
	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/dispatch"
	"github.com/lsm/cloudwatch-stdf/internal/observability"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run builds the dispatcher once per cold start. Configuration problems
// fail the init phase instead of every invocation.
func run() error {
	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(os.Stdout, "cloudwatch-stdf-lambda", observability.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	tp, err := tracing.New(context.Background(), cfg.Tracing, tracing.Options{ServiceName: "cloudwatch-stdf-lambda"}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	rt, err := app.Build(context.Background(), cfg, app.Options{Logger: logger, Tracer: tp.Tracer()})
	if err != nil {
		return err
	}

	lambda.Start(handler(rt.Dispatcher, tp.Flush, logger))
	return nil
}

// handler flushes spans before returning because the execution environment
// may be frozen as soon as the invocation completes.
func handler(d *dispatch.Dispatcher, flush func(context.Context) error, logger *slog.Logger) func(context.Context, awslogs.Event) error {
	return func(ctx context.Context, evt awslogs.Event) error {
		ctx = correlation.WithID(ctx, correlation.FromLambda(ctx).Value)
		err := d.Handle(ctx, evt)
		if ferr := flush(ctx); ferr != nil {
			logger.WarnContext(ctx, "failed to flush spans", "error", ferr)
		}
		return err
	}
}
