package http

import (
	"github.com/gin-gonic/gin"

	appsvc "docfill/internal/app"
	"docfill/internal/bootstrap"
	"docfill/internal/repository"
	"docfill/internal/transport/http/handler"
	"docfill/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = app.Config.MaxUploadBytes()
	router.Use(middleware.Recovery(app.Logger), middleware.RequestLogger(app.Logger))
	if app.Metrics != nil {
		router.Use(middleware.Metrics(app.Metrics))
	}

	var (
		publisher   appsvc.TranscriptPublisher
		transcripts appsvc.TranscriptReader
	)
	if app.Publisher != nil {
		publisher = app.Publisher
	}
	if app.MySQL != nil {
		transcripts = repository.NewMessageRepository(app.MySQL)
	}

	editor := appsvc.NewEditor(app.Generator, app.Config.LLMTimeout(), app.Metrics, app.Logger)
	documentService := appsvc.NewDocumentService(
		app.Sessions,
		editor,
		publisher,
		transcripts,
		app.Metrics,
		app.Logger,
		app.Config.MaxUploadBytes(),
	)
	documentHandler := handler.NewDocumentHandler(documentService)
	healthHandler := handler.NewHealthHandler(app)

	router.StaticFile("/", "web/index.html")
	router.GET("/healthz", healthHandler.Check)
	if app.Metrics != nil {
		router.GET(app.Config.Metrics.Path, gin.WrapH(app.Metrics.Handler()))
	}

	router.POST("/upload", documentHandler.Upload)
	router.POST("/chat", documentHandler.Chat)
	router.GET("/preview", documentHandler.Preview)
	router.GET("/download", documentHandler.Download)
	router.DELETE("/session", documentHandler.DeleteSession)
	if transcripts != nil {
		router.GET("/history", documentHandler.History)
	}

	return router
}
