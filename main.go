package main

import (
	"context"
	"errors"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"media-service/internal/config"
	"media-service/internal/domain/image"
	"media-service/internal/http"
	"media-service/internal/imaging"
	"media-service/internal/naming"
	"media-service/internal/repository/postgres"
	"media-service/internal/storage"
	"media-service/internal/synology"
	"media-service/internal/upload"
)

const (
	envFilePath      = ".env"
	serverAddrPrefix = ":"
	signalBufferSize = 1
	logOutputFlags   = log.LstdFlags | log.Lshortfile
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	if err := godotenv.Load(envFilePath); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(logOutputFlags)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Configuration loaded successfully")

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Database connection established")

	records := postgres.NewRecordRepository(db)

	transcoder := imaging.NewTranscoder(cfg.Upload.CompressThreshold, cfg.Upload.MaxImageDimension)
	policy := naming.NewPolicy(cfg.Nas.StorageRoot)

	backends := []storage.Backend{storage.NewLocalDisk(cfg.Local.UploadDir)}

	var (
		fileStation   *synology.FileStation
		photos        *synology.Photos
		fsSessions    *synology.SessionManager
		photoSessions *synology.SessionManager
	)

	if cfg.Nas.BaseURL != "" && cfg.Nas.Username != "" {
		nasClient := &stdhttp.Client{Timeout: cfg.Nas.Timeout}
		fsURLs := []string{cfg.Nas.BaseURL, cfg.Nas.AlternativeURL}

		fsSessions = synology.NewSessionManager(synology.FlavorFileStation, fsURLs, cfg.Nas.Username, cfg.Nas.Password, cfg.Nas.Timeout)
		fileStation = synology.NewFileStation(fsSessions, nasClient)

		backends = append(backends,
			storage.NewFileStationBackend(fileStation),
			storage.NewSmbBackend(fileStation, cfg.Nas.SmbSafeRoot),
		)

		photosURL := cfg.Nas.PhotosURL
		if photosURL == "" {
			photosURL = cfg.Nas.BaseURL
		}
		photoSessions = synology.NewSessionManager(synology.FlavorPhotos, []string{photosURL}, cfg.Nas.Username, cfg.Nas.Password, cfg.Nas.Timeout)
		photos = synology.NewPhotos(photoSessions, nasClient)
		backends = append(backends, storage.NewPhotosBackend(photos, cfg.Nas.PhotosFolderID))

		log.Println("NAS storage backends initialized")
	} else {
		log.Println("NAS credentials not configured, running on local storage only")
	}

	var archive *storage.ArchiveBackend
	if cfg.ArchiveEnabled() {
		archive, err = storage.NewArchiveBackend(cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to create archive backend: %v", err)
		}
		backends = append(backends, archive)
		log.Println("S3 archive backend initialized")
	}

	registry := storage.NewRegistry(backends...)

	if err := image.ValidateRoutes(registry.Available()); err != nil {
		log.Fatalf("Invalid entity routing: %v", err)
	}

	orchestrator := upload.NewOrchestrator(
		transcoder,
		policy,
		registry,
		records,
		cfg.Upload.MaxUploadSize,
		cfg.Upload.MaxFilesPerUpload,
		cfg.Upload.ThumbnailSize,
	)

	server := http.NewServer(&http.ServerDependencies{
		Config:        cfg,
		Records:       records,
		Backends:      registry,
		Orchestrator:  orchestrator,
		FileStation:   fileStation,
		Photos:        photos,
		FsSessions:    fsSessions,
		PhotoSessions: photoSessions,
		Transcoder:    transcoder,
		Archive:       archive,
	})

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := server.Start(serverAddrPrefix + cfg.Server.Port); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, signalBufferSize)
	signal.Notify(quit, shutdownSignals...)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if fsSessions != nil {
		fsSessions.Logout(ctx)
	}
	if photoSessions != nil {
		photoSessions.Logout(ctx)
	}

	log.Println("Server exited gracefully")
}
