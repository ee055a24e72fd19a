package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/histotrack/pathlab-api/internal/service"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
	"github.com/histotrack/pathlab-api/pkg/response"
)

// ImageHandler exposes sample image endpoints.
type ImageHandler struct {
	images *service.ImageService
}

// NewImageHandler constructs ImageHandler.
func NewImageHandler(images *service.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

// List godoc
// @Summary List images of a sample
// @Tags Images
// @Produce json
// @Param id path string true "Sample ID"
// @Param active query bool false "Only active images"
// @Success 200 {object} response.Envelope
// @Router /samples/{id}/images [get]
func (h *ImageHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	images, err := h.images.ListBySample(c.Request.Context(), c.Param("id"), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, images, nil)
}

// Add godoc
// @Summary Attach an image to a sample
// @Tags Images
// @Accept json
// @Produce json
// @Param id path string true "Sample ID"
// @Param payload body service.AddImageRequest true "Image payload"
// @Success 201 {object} response.Envelope
// @Router /samples/{id}/images [post]
func (h *ImageHandler) Add(c *gin.Context) {
	var req service.AddImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	image, err := h.images.Add(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, image)
}

// Get godoc
// @Summary Get an image
// @Tags Images
// @Produce json
// @Param id path string true "Image ID"
// @Success 200 {object} response.Envelope
// @Router /images/{id} [get]
func (h *ImageHandler) Get(c *gin.Context) {
	image, err := h.images.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, image, nil)
}

// Update godoc
// @Summary Edit image metadata
// @Tags Images
// @Accept json
// @Produce json
// @Param id path string true "Image ID"
// @Param payload body service.UpdateImageRequest true "Image payload"
// @Success 200 {object} response.Envelope
// @Router /images/{id} [put]
func (h *ImageHandler) Update(c *gin.Context) {
	var req service.UpdateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	image, err := h.images.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, image, nil)
}

// Activate godoc
// @Summary Activate an image
// @Tags Images
// @Produce json
// @Param id path string true "Image ID"
// @Success 204
// @Router /images/{id}/activate [post]
func (h *ImageHandler) Activate(c *gin.Context) {
	if err := h.images.SetActive(c.Request.Context(), c.Param("id"), true); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Deactivate godoc
// @Summary Deactivate an image
// @Tags Images
// @Produce json
// @Param id path string true "Image ID"
// @Success 204
// @Router /images/{id}/deactivate [post]
func (h *ImageHandler) Deactivate(c *gin.Context) {
	if err := h.images.SetActive(c.Request.Context(), c.Param("id"), false); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete an image
// @Tags Images
// @Produce json
// @Param id path string true "Image ID"
// @Success 204
// @Router /images/{id} [delete]
func (h *ImageHandler) Delete(c *gin.Context) {
	if err := h.images.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
