package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/iwvelando/kpicalc/internal/batch"
	"github.com/iwvelando/kpicalc/internal/config"
	"github.com/iwvelando/kpicalc/internal/logging"
	"github.com/iwvelando/kpicalc/internal/webhook"
	"github.com/iwvelando/kpicalc/pkg/constants"
	"github.com/iwvelando/kpicalc/pkg/output"
	"github.com/iwvelando/kpicalc/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, xlsx, pdf")
	outputFileFlag := flag.String("output-file", "", "destination for xlsx or pdf output")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	scenarioName := flag.String("scenario", "", "only report the named scenario")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}
	outputFile := conf.Output.File
	if *outputFileFlag != "" {
		outputFile = *outputFileFlag
	}
	outputFile = validation.OutputFile(outputFormat, outputFile)

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	notifier := webhook.NewNotifier(logger, webhook.WithTimeout(conf.Webhook.Timeout))
	outcomes, err := batch.Run(ctx, logger, *conf, notifier)
	if err != nil {
		logger.Fatal("failed to calculate scenarios",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if *scenarioName != "" {
		selected := batch.Find(outcomes, *scenarioName)
		if selected == nil {
			logger.Fatal("scenario not found",
				zap.String("op", "main"),
				zap.String("scenario", *scenarioName),
			)
		}
		outcomes = []batch.Outcome{*selected}
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(outcomes)
	case constants.OutputFormatCSV:
		output.CsvFormat(outcomes)
	case constants.OutputFormatXLSX:
		data, err := output.XLSX(outcomes)
		if err == nil {
			err = output.WriteFile(outputFile, data)
		}
		if err != nil {
			logger.Fatal("failed to write workbook",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		logger.Info("wrote workbook", zap.String("op", "main"), zap.String("file", outputFile))
	case constants.OutputFormatPDF:
		data, err := output.PDF(outcomes, time.Now())
		if err == nil {
			err = output.WriteFile(outputFile, data)
		}
		if err != nil {
			logger.Fatal("failed to write report",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		logger.Info("wrote report", zap.String("op", "main"), zap.String("file", outputFile))
	}
}
