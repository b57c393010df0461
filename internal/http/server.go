package http

import (
	"context"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"media-service/internal/config"
	"media-service/internal/http/handler"
	"media-service/internal/http/middleware"
	"media-service/internal/imaging"
	"media-service/internal/repository"
	"media-service/internal/storage"
	"media-service/internal/synology"
	"media-service/internal/upload"
)

const requestBodyLimit = "250M"

// ServerDependencies carries everything the route table needs. The NAS
// clients may be nil when the deployment runs local-disk only; the routes
// depending on them are simply not registered then.
type ServerDependencies struct {
	Config        *config.Config
	Records       repository.Records
	Backends      *storage.Registry
	Orchestrator  *upload.Orchestrator
	FileStation   *synology.FileStation
	Photos        *synology.Photos
	FsSessions    *synology.SessionManager
	PhotoSessions *synology.SessionManager
	Transcoder    *imaging.Transcoder
	Archive       *storage.ArchiveBackend
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = CustomHTTPErrorHandler

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	// Request ID first so every log line carries it.
	e.Use(middleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))

	uploadHandler := handler.NewUploadHandler(deps.Orchestrator)
	albumHandler := handler.NewAlbumHandler(deps.Records, deps.Backends)
	healthHandler := handler.NewHealthHandler(deps.FsSessions, deps.PhotoSessions)

	e.GET("/health", healthHandler.Health)
	e.Static("/uploads", deps.Config.Local.UploadDir)

	api := e.Group("/api")

	api.POST("/upload/:entity", uploadHandler.UploadEntity)
	api.GET("/albums/:id/images", albumHandler.ListImages)
	api.DELETE("/albums/:id/images/:imageID", albumHandler.DeleteImage)

	if deps.Archive != nil {
		archiveHandler := handler.NewArchiveHandler(deps.Archive)
		api.GET("/archive/download-url", archiveHandler.DownloadURL)
	}

	syno := api.Group("/synology")
	syno.GET("/health", healthHandler.SynologyHealth)

	if deps.FileStation != nil {
		proxyHandler := handler.NewProxyHandler(deps.FileStation, deps.Photos, deps.Transcoder, deps.Config.Upload.ThumbnailSize)

		api.POST("/albums/:id/upload-filestation", uploadHandler.UploadAlbumFileStation)
		api.POST("/albums/:id/upload-smb", uploadHandler.UploadAlbumSmb)
		api.POST("/upload/synology", uploadHandler.UploadSynology)

		syno.GET("/file-proxy", proxyHandler.FileProxy)
		syno.GET("/smb-proxy", proxyHandler.SmbProxy)

		if deps.Photos != nil {
			syno.POST("/photos-upload", uploadHandler.UploadPhotos)
			syno.GET("/image-proxy", proxyHandler.ImageProxy)
			syno.GET("/photos-folders", proxyHandler.PhotoFolders)
		}
	}

	return &Server{echo: e, deps: deps}
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
