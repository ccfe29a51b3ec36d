// internal/handlers/upload.go
package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type UploadHandler struct {
	storageService *services.StorageService
}

func NewUploadHandler(storageService *services.StorageService) *UploadHandler {
	return &UploadHandler{storageService: storageService}
}

// POST /uploads?category=service_images|application_documents
func (h *UploadHandler) UploadFiles(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if _, ok := currentUser(c); !ok {
		return
	}

	options, ok := h.storageService.GetDefaultUploadOptions(c.Query("category"))
	if !ok {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "category"), nil)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "files"), nil)
		return
	}

	uploaded := make([]gin.H, 0, len(files))
	rejected := make([]gin.H, 0)
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			rejected = append(rejected, gin.H{"filename": fileHeader.Filename, "error": i18n.T(lang, i18n.KeyFileUploadFailed)})
			continue
		}

		result, err := h.storageService.UploadFile(c.Request.Context(), services.UploadInput{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Body:        file,
		}, options)
		file.Close()

		if err != nil {
			logrus.WithError(err).WithField("filename", fileHeader.Filename).Warn("upload rejected")
			rejected = append(rejected, gin.H{"filename": fileHeader.Filename, "error": err.Error()})
			continue
		}

		uploaded = append(uploaded, gin.H{
			"url":       result.URL,
			"key":       result.Key,
			"size":      result.Size,
			"mime_type": result.MimeType,
			"filename":  fileHeader.Filename,
		})
	}

	if len(uploaded) == 0 {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), rejected)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyFileUploadSuccess),
		"files":    uploaded,
		"rejected": rejected,
	})
}

// GET /uploads/presign?key=
func (h *UploadHandler) PresignFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	key := strings.TrimSpace(c.Query("key"))
	if key == "" || strings.Contains(key, "..") {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "key"), nil)
		return
	}

	url, err := h.storageService.GeneratePresignedURL(key, 15*time.Minute)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"url": url, "expires_in": 900})
}

// DELETE /uploads?key=
func (h *UploadHandler) DeleteFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "key"), nil)
		return
	}

	if err := h.storageService.DeleteFile(c.Request.Context(), key); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"key": key, "deleted": true})
}
