package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kystlys/stay-engine/internal/auth"
	"github.com/kystlys/stay-engine/internal/pkg/request"
	"github.com/kystlys/stay-engine/internal/pkg/response"
	"github.com/kystlys/stay-engine/internal/roomtype"
)

type Handler struct {
	service roomtype.Service
	photos  *roomtype.PhotoService
}

func NewHandler(service roomtype.Service, photos *roomtype.PhotoService) *Handler {
	return &Handler{service: service, photos: photos}
}

// List shows active room types to guests and every room type to staff.
func (h *Handler) List(c *gin.Context) {
	var req ListRoomTypesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	items, total, err := h.service.List(c.Request.Context(), roomtype.Filter{
		ActiveOnly: auth.GetStaffID(c) == "",
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]RoomTypeResponse, len(items))
	for i, rt := range items {
		resp[i] = NewRoomTypeResponse(rt)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(resp, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}

	rt, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !rt.IsActive && auth.GetStaffID(c) == "" {
		response.Error(c, roomtype.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, NewRoomTypeResponse(rt))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateRoomTypeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	rt, err := h.service.Create(c.Request.Context(), roomtype.CreateRequest{
		Name:        body.Name,
		Description: body.Description,
		MaxGuests:   body.MaxGuests,
		BasePrice:   body.BasePrice,
		UnitCount:   body.UnitCount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewRoomTypeResponse(rt))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}
	var body roomtype.Patch
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	rt, err := h.service.Update(c.Request.Context(), uri.ID, body)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRoomTypeResponse(rt))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListUnits(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}

	units, err := h.service.ListUnits(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]UnitResponse, len(units))
	for i, u := range units {
		items[i] = NewUnitResponse(u)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) CreateUnit(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}
	var body CreateUnitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	u, err := h.service.CreateUnit(c.Request.Context(), roomtype.CreateUnitRequest{
		RoomTypeID: uri.ID,
		Label:      body.Label,
		LockID:     body.LockID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewUnitResponse(u))
}

func (h *Handler) UpdateUnit(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid unit id", err)
		return
	}
	var body roomtype.UnitPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	u, err := h.service.UpdateUnit(c.Request.Context(), uri.ID, body)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewUnitResponse(u))
}

func (h *Handler) DeleteUnit(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid unit id", err)
		return
	}
	if err := h.service.DeleteUnit(c.Request.Context(), uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadPhoto accepts a multipart "file" field.
func (h *Handler) UploadPhoto(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	rt, err := h.photos.Upload(c.Request.Context(), uri.ID, f)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRoomTypeResponse(rt))
}

func (h *Handler) ServePhoto(c *gin.Context) {
	h.servePhoto(c, false)
}

func (h *Handler) ServeThumbnail(c *gin.Context) {
	h.servePhoto(c, true)
}

func (h *Handler) servePhoto(c *gin.Context, thumb bool) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}

	stream, err := h.photos.Open(c.Request.Context(), uri.ID, thumb)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "image/jpeg")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		// Response already started
		return
	}
}
