// Command datacollector captures frames from configured cameras, samples
// them through a detector, and persists accepted samples as a training
// dataset with an sqlite catalog.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/datacollector/internal/api"
	"github.com/banshee-data/datacollector/internal/camera"
	"github.com/banshee-data/datacollector/internal/collector"
	"github.com/banshee-data/datacollector/internal/config"
	"github.com/banshee-data/datacollector/internal/dataset"
	"github.com/banshee-data/datacollector/internal/fsutil"
	"github.com/banshee-data/datacollector/internal/monitoring"
	"github.com/banshee-data/datacollector/internal/timeutil"
	"github.com/banshee-data/datacollector/internal/vision"
)

var (
	configPath        = flag.String("config", "config/collector.json", "Path to the JSON configuration file")
	listen            = flag.String("listen", ":8080", "Listen address")
	syntheticDetector = flag.Bool("synthetic-detector", false, "Fabricate detections instead of loading a model")
	verbose           = flag.Bool("verbose", false, "Log per-frame activity")
)

func main() {
	flag.Parse()
	monitoring.SetVerbose(*verbose)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cameras := cfg.EnabledCameras()
	if len(cameras) == 0 {
		log.Fatal("No enabled cameras in config")
	}

	clock := timeutil.RealClock{}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	registry := camera.NewRegistry(cameras, clock, rng)

	var detector vision.Detector
	if *syntheticDetector {
		detector = vision.NewSyntheticDetector(rand.New(rand.NewSource(rng.Int63())), len(cfg.Inference.ClassNames))
	} else {
		if cfg.Inference.ModelPath == "" {
			log.Fatal("inference.model_path is required without -synthetic-detector")
		}
		detector = vision.NewDNNDetector(
			cfg.Inference.ModelPath,
			cfg.Inference.InputWidth,
			cfg.Inference.InputHeight,
			cfg.Inference.ScoreThreshold,
		)
	}
	if err := detector.Start(); err != nil {
		log.Fatalf("Failed to start detector: %v", err)
	}
	defer detector.Stop()

	store, err := dataset.NewStore(cfg.Storage, fsutil.OSFileSystem{}, clock, rand.New(rand.NewSource(rng.Int63())))
	if err != nil {
		log.Fatalf("Failed to open dataset store: %v", err)
	}
	defer store.Close()

	registry.StartAll()
	defer registry.StopAll()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the sampling loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		c := collector.New(registry, detector, store, clock, collector.Policy{
			Interval: time.Duration(cfg.Collection.IntervalSeconds * float64(time.Second)),
			Filter: vision.LabelFilter{
				MinConfidence: cfg.Collection.MinConfidence,
				TargetClasses: vision.TargetClassSet(cfg.Collection.TargetClasses),
				ClassName:     cfg.ClassName,
			},
		})
		c.Run(ctx)
		monitoring.Logf("collector routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		server := api.NewServer(api.Config{
			Address:  *listen,
			Store:    store,
			Registry: registry,
			Clock:    clock,
		})
		if err := server.Start(ctx); err != nil {
			monitoring.Logf("HTTP server error: %v", err)
		}
		monitoring.Logf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	monitoring.Logf("Graceful shutdown complete")
}
