package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-bootctl/internal/device"
	"github.com/deploymenttheory/go-bootctl/internal/services"
	"github.com/deploymenttheory/go-bootctl/pkg/app"
)

var config *device.Config

// initConfig loads configuration once flags are parsed
func initConfig() error {
	cfg, err := device.LoadConfig(viper.GetViper(), configFile)
	if err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "failed to load configuration", err)
	}
	config = cfg
	return nil
}

// newContext creates the application context from the global flags
func newContext() *app.Context {
	ctx := app.NewContext()
	ctx.OutputFormat = GetOutputFormat()
	ctx.Verbose = GetVerbose()
	ctx.Quiet = GetQuiet()
	ctx.Logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	ctx.ApplyLogLevel()
	// --quiet wins over trace_bytes
	if config != nil && config.TraceBytes && !ctx.Quiet {
		ctx.Logger.SetLevel(logrus.TraceLevel)
	}
	return ctx
}

// newDevice creates device I/O over the host filesystem
func newDevice(ctx *app.Context) *device.BlockDeviceIO {
	return device.NewBlockDeviceIO(afero.NewOsFs(), config, ctx.Logger)
}

// newSession creates a boot control session over the configured paths
func newSession(ctx *app.Context) *app.Session {
	control := services.NewBootControl(newDevice(ctx), services.BootControlConfig{
		DevinfoPath: config.DevinfoPath,
		BootAPath:   config.BootAPath,
		BootBPath:   config.BootBPath,
		TraceBytes:  config.TraceBytes,
		Logger:      ctx.Logger,
	})
	return app.NewSession(control, ctx.Logger)
}
