// Command booking-steps runs one booking step as a Lambda function. The
// step is chosen with STEP_NAME so the orchestrator can deploy each
// state separately.
package main

import (
	"context"
	"slices"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/appointment-booking-engine/internal/app"
	"github.com/hackgods/appointment-booking-engine/internal/appointment"
	"github.com/hackgods/appointment-booking-engine/internal/config"
	"github.com/hackgods/appointment-booking-engine/internal/logging"
	"github.com/hackgods/appointment-booking-engine/internal/notify"
	"github.com/hackgods/appointment-booking-engine/internal/steps"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", "booking-steps")
		boot.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, "booking-steps").With().Str("step", cfg.StepName).Logger()

	if !slices.Contains(steps.Names, cfg.StepName) {
		log.Fatal().Strs("valid", steps.Names).Msg("STEP_NAME must name a step")
	}

	// Components live for the lifetime of the execution environment and
	// are reused across invocations.
	c, err := app.Build(context.Background(), cfg, log, prometheus.NewRegistry())
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	var handoff appointment.HandOff
	if cfg.StepName == steps.Notify {
		pub, err := notify.NewAMQPPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("notification broker unavailable")
		}
		handoff = notify.NewHandOff(pub, log, c.Metrics)
	}

	runner := steps.NewRunner(c.Engine, c.Directory, c.Ledger, handoff, log)

	lambda.Start(handler(runner, cfg.StepName))
}

type stepRunner interface {
	Run(ctx context.Context, name string, in steps.Input) (steps.Output, error)
}

func handler(r stepRunner, step string) func(ctx context.Context, in steps.Input) (steps.Output, error) {
	return func(ctx context.Context, in steps.Input) (steps.Output, error) {
		return r.Run(ctx, step, in)
	}
}
