package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat-platform/internal/crawler"
	"docchat-platform/internal/ingest"
	"docchat-platform/internal/repository"
	"docchat-platform/middleware"
	"docchat-platform/models"
	"docchat-platform/utils"
)

func SetupDocumentRoutes(api *gin.RouterGroup, repo repository.Repository, orch *ingest.Orchestrator, maxFileSize int64) {
	docs := api.Group("/documents")

	docs.POST("", middleware.RequestSizeLimit(maxFileSize+multipartOverhead), HandleUpload(orch, maxFileSize))
	docs.POST("/url", HandleCreateFromURL(orch))
	docs.GET("", HandleListDocuments(repo))
	docs.GET("/:id", HandleGetDocument(repo))
	docs.DELETE("/:id", HandleDeleteDocument(repo))
}

// HandleUpload accepts a multipart "file" field and answers 202 with the
// processing record.
func HandleUpload(orch *ingest.Orchestrator, maxFileSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				utils.RespondWithTooLarge(c, maxFileSize)
				return
			}
			utils.RespondWithValidationError(c, "no_file", "No file provided in field \"file\"")
			return
		}
		if header.Size > maxFileSize {
			utils.RespondWithTooLarge(c, maxFileSize)
			return
		}

		file, err := header.Open()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read upload", nil)
			return
		}
		defer file.Close()

		doc, _, err := orch.CreateFileDocument(c.Request.Context(), file, header.Filename, header.Header.Get("Content-Type"))
		switch {
		case errors.Is(err, ingest.ErrFileTooLarge):
			utils.RespondWithTooLarge(c, maxFileSize)
			return
		case errors.Is(err, ingest.ErrEmptyFile):
			utils.RespondWithValidationError(c, "empty_file", "Uploaded file is empty")
			return
		case err != nil:
			c.Error(err)
			utils.RespondWithInternalError(c, "Failed to store document", nil)
			return
		}

		c.JSON(http.StatusAccepted, doc)
	}
}

// HandleCreateFromURL validates the URL synchronously and crawls it in
// the background.
func HandleCreateFromURL(orch *ingest.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.URLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		doc, _, err := orch.CreateURLDocument(c.Request.Context(), req.URL)
		switch {
		case errors.Is(err, crawler.ErrInvalidURL):
			utils.RespondWithValidationError(c, "invalid_url", "URL must be an absolute http or https address")
			return
		case err != nil:
			c.Error(err)
			utils.RespondWithInternalError(c, "Failed to create document", nil)
			return
		}

		c.JSON(http.StatusAccepted, doc)
	}
}

// HandleListDocuments returns all documents, newest first, without their
// extracted content.
func HandleListDocuments(repo repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		docs, err := repo.ListDocuments(ctx)
		if err != nil {
			c.Error(err)
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	}
}

func HandleGetDocument(repo repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		doc, err := repo.GetDocument(ctx, c.Param("id"))
		switch {
		case errors.Is(err, repository.ErrNotFound):
			utils.RespondWithNotFound(c, "Document not found")
			return
		case err != nil:
			c.Error(err)
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

// HandleDeleteDocument removes a document and its chunks, including one
// that is still processing.
func HandleDeleteDocument(repo repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		id := c.Param("id")
		err := repo.DeleteDocument(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			utils.RespondWithNotFound(c, "Document not found")
			return
		case err != nil:
			c.Error(err)
			utils.RespondWithInternalError(c, "Failed to delete document", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Document deleted", "id": id})
	}
}
