package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/adapters/automation"
	"github.com/jsodeh/konvato/internal/cache"
	"github.com/jsodeh/konvato/internal/core"
	"github.com/jsodeh/konvato/internal/logging"
)

var (
	code        = flag.String("code", "", "Betslip code to convert")
	source      = flag.String("from", "", "Source bookmaker (e.g. bet9ja)")
	destination = flag.String("to", "", "Destination bookmaker (e.g. sportybet)")

	automationURL  = flag.String("automation-url", "http://localhost:10000", "Base URL of the automation service")
	attemptTimeout = flag.Duration("timeout", 45*time.Second, "Timeout per automation attempt")
	maxAttempts    = flag.Int("max-attempts", 3, "Maximum automation attempts")
	backoffBase    = flag.Duration("backoff", 2*time.Second, "Base delay between retries")

	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *code == "" || *source == "" || *destination == "" {
		fmt.Println("Usage: konvato-convert -code CODE -from BOOKMAKER -to BOOKMAKER")
		flag.PrintDefaults()
		os.Exit(2)
	}

	registry, err := core.NewBookmakerRegistry(core.DefaultBookmakers(), logger)
	if err != nil {
		logger.Fatal("Failed to build bookmaker registry", zap.Error(err))
	}

	// One-shot runs use a memory-only cache; there is nothing to warm up or
	// persist
	memory := cache.NewTTLCache(logger, time.Minute)
	manager := cache.NewManager(memory, nil, logger, logging.NewComplianceLogger(logger), time.Hour)
	defer manager.Stop()

	client := automation.NewHTTPClient(*automationURL, logger)
	service := core.NewConversionService(
		client,
		manager,
		registry,
		logger,
		logging.NewComplianceLogger(logger),
		*attemptTimeout,
		*maxAttempts,
		*backoffBase,
	)

	result := service.Convert(context.Background(), &core.ConversionRequest{
		BetslipCode:          *code,
		SourceBookmaker:      *source,
		DestinationBookmaker: *destination,
		ClientID:             "cli",
	})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
}
