package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nibbleworks/wasmipl"
	"github.com/nibbleworks/wasmipl/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "info", "Log level: debug selects the development logger, any other value the production logger")
	module := flag.String("module", "", "Path or URL to a Wasm module to load")
	export := flag.String("export", "", "Guest export to call")
	argsJSON := flag.String("args", "[]", "JSON array of arguments to pass to the export")
	flag.Parse()

	var logger *zap.Logger
	if *logLevel == "debug" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting wasmipl",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	cfg, err := config.LoadBridgeConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if *module == "" || *export == "" {
		logger.Fatal("both -module and -export are required")
	}

	var args []any
	if err := json.Unmarshal([]byte(*argsJSON), &args); err != nil {
		logger.Fatal("Failed to parse -args as JSON", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	opts := []wasmipl.Option{
		wasmipl.WithLogger(logger),
		wasmipl.WithMemoryPages(cfg.Wasm.MemoryPages),
		wasmipl.WithDebug(cfg.Wasm.Debug),
		wasmipl.WithCacheDir(cfg.Wasm.CacheDir),
	}

	instance, err := loadInstance(ctx, *module, opts)
	if err != nil {
		logger.Fatal("Failed to load module", zap.Error(err))
	}
	defer instance.Close(ctx)

	callCtx := ctx
	if cfg.Wasm.ExecutionTimeout > 0 {
		var callCancel context.CancelFunc
		callCtx, callCancel = context.WithTimeout(ctx, time.Duration(cfg.Wasm.ExecutionTimeout)*time.Second)
		defer callCancel()
	}

	result, err := instance.Call(callCtx, *export, args...)
	if err != nil {
		logger.Fatal("Call failed", zap.String("export", *export), zap.Error(err))
	}

	out, err := json.Marshal(result)
	if err != nil {
		logger.Fatal("Failed to marshal result", zap.Error(err))
	}
	fmt.Println(string(out))
}

func loadInstance(ctx context.Context, module string, opts []wasmipl.Option) (*wasmipl.Instance, error) {
	if strings.HasPrefix(module, "http://") || strings.HasPrefix(module, "https://") {
		return wasmipl.NewFromURL(ctx, module, opts...)
	}
	return wasmipl.NewFromFile(ctx, module, opts...)
}
