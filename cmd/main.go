package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"dag-syncer/client"
	"dag-syncer/db"
	"dag-syncer/handlers"
	"dag-syncer/logger"
	"dag-syncer/models"
	"dag-syncer/processor"
	"dag-syncer/repository"
	"dag-syncer/routers"
	"dag-syncer/syncer"
)

func main() {
	// Load config
	viper.SetConfigFile("config/config.yaml")
	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("Config file error:", err)
		os.Exit(1)
	}

	appLogFile := viper.GetString("log.app_log_file")
	logLevel := viper.GetString("log.level")

	if err := logger.InitLogger(appLogFile, logLevel); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}

	logger.Logger.Info("Starting historical DAG syncer...")

	// Connect to LevelDB
	leveldbPath := viper.GetString("leveldb.path")
	ldb, err := db.NewLevelDB(leveldbPath)
	if err != nil {
		logger.Logger.Fatal("Failed to open leveldb", zap.Error(err))
	}
	defer ldb.Close()

	// Initialize repositories
	rangeRepo := repository.NewRangeRepository(ldb)
	blockRepo := repository.NewBlockRepository(ldb)

	// Connect to the node
	nodeURL := viper.GetString("node.url")
	source, err := client.Dial(nodeURL)
	if err != nil {
		logger.Logger.Fatal("Failed to connect to node", zap.String("url", nodeURL), zap.Error(err))
	}
	defer source.Close()

	// Resolve the configured sync span
	startCursor, err := cursorFromConfig("sync.start")
	if err != nil {
		logger.Logger.Fatal("Invalid sync.start config", zap.Error(err))
	}
	targetCursor, err := cursorFromConfig("sync.target")
	if err != nil {
		logger.Logger.Fatal("Invalid sync.target config", zap.Error(err))
	}

	// Crash recovery: resume from every persisted gap leading to this
	// target; otherwise record the configured span as a fresh gap.
	tasks, err := pendingRanges(rangeRepo, startCursor, targetCursor)
	if err != nil {
		logger.Logger.Fatal("Failed to resolve pending sync ranges", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Downstream consumer persisting every streamed block
	proc := processor.NewBlockProcessor(blockRepo, viper.GetInt("processor.buffer"))
	go func() {
		if err := proc.Run(ctx); err != nil {
			logger.Logger.Error("Block processor failed", zap.Error(err))
		}
	}()

	// One independent syncer per pending range
	shutdownCh := make(chan struct{})
	fatalCh := make(chan error, len(tasks))
	var wg sync.WaitGroup
	syncers := make([]handlers.StatsProvider, 0, len(tasks))

	for _, task := range tasks {
		s := syncer.New(source, task.From, task.To, proc, shutdownCh, rangeRepo)
		syncers = append(syncers, s)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Sync(ctx); err != nil {
				fatalCh <- err
			}
		}()
	}

	// Setup router
	h := handlers.NewHandler(syncers, rangeRepo, source)
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", viper.GetInt("server.port")),
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Logger.Info("HTTP server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Syncer running",
		zap.Int("tasks", len(tasks)),
		zap.Int("port", viper.GetInt("server.port")))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Logger.Info("Shutdown signal received, exiting...")
	case err := <-fatalCh:
		logger.Logger.Error("Sync task failed, shutting down", zap.Error(err))
	}

	close(shutdownCh)
	wg.Wait()
	cancel()
	srv.Close()
}

// cursorFromConfig reads a cursor from the given config key prefix
func cursorFromConfig(prefix string) (models.Cursor, error) {
	blueWork, err := models.BlueWorkFromHex(viper.GetString(prefix + ".blue_work"))
	if err != nil {
		return models.Cursor{}, err
	}
	return models.NewCursor(
		viper.GetUint64(prefix+".daa_score"),
		blueWork,
		viper.GetString(prefix+".hash"),
	), nil
}

// pendingRanges returns the gap records to sync. Persisted gaps leading to
// the configured target take precedence over the configured start, so a
// restart resumes from wherever the previous run left off.
func pendingRanges(repo repository.RangeRepositoryInterface, start, target models.Cursor) ([]*models.SyncRange, error) {
	persisted, err := repo.GetAllRanges()
	if err != nil {
		return nil, err
	}

	var tasks []*models.SyncRange
	for _, r := range persisted {
		if r.To.Equal(target) {
			logger.Logger.Info("Resuming persisted sync range",
				zap.String("from_hash", r.From.Hash),
				zap.Uint64("from_daa_score", r.From.DAAScore))
			tasks = append(tasks, r)
		}
	}
	if len(tasks) > 0 {
		return tasks, nil
	}

	fresh := &models.SyncRange{From: start, To: target}
	if err := repo.AddRange(fresh); err != nil {
		return nil, err
	}
	return []*models.SyncRange{fresh}, nil
}
