package http

import (
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/request"
	"github.com/kystlys/stay-engine/internal/roomtype"
)

type ListRoomTypesRequest struct {
	request.ListParams
	SortBy string `form:"sort_by" binding:"omitempty,oneof=name base_price max_guests created_at"`
}

type RoomTypeResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MaxGuests   int       `json:"max_guests"`
	BasePrice   int64     `json:"base_price"`
	UnitCount   int       `json:"unit_count"`
	IsActive    bool      `json:"is_active"`
	PhotoURL    *string   `json:"photo_url"`
	ThumbURL    *string   `json:"thumbnail_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewRoomTypeResponse(rt *roomtype.RoomType) RoomTypeResponse {
	resp := RoomTypeResponse{
		ID:          rt.ID,
		Name:        rt.Name,
		Description: rt.Description,
		MaxGuests:   rt.MaxGuests,
		BasePrice:   rt.BasePrice,
		UnitCount:   rt.ConfiguredUnits(),
		IsActive:    rt.IsActive,
		CreatedAt:   rt.CreatedAt,
		UpdatedAt:   rt.UpdatedAt,
	}
	if rt.PhotoPath != nil {
		u := "/v1/room-types/" + rt.ID + "/photo"
		resp.PhotoURL = &u
	}
	if rt.ThumbPath != nil {
		u := "/v1/room-types/" + rt.ID + "/photo/thumbnail"
		resp.ThumbURL = &u
	}
	return resp
}

type CreateRoomTypeBody struct {
	Name        string `json:"name" binding:"required,max=120"`
	Description string `json:"description" binding:"max=4000"`
	MaxGuests   int    `json:"max_guests" binding:"required,min=1"`
	BasePrice   int64  `json:"base_price" binding:"min=0"`
	UnitCount   *int   `json:"unit_count" binding:"omitempty,min=0"`
}

type UnitResponse struct {
	ID         string    `json:"id"`
	RoomTypeID string    `json:"room_type_id"`
	Label      string    `json:"label"`
	LockID     *string   `json:"lock_id"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewUnitResponse(u *roomtype.Unit) UnitResponse {
	return UnitResponse{
		ID:         u.ID,
		RoomTypeID: u.RoomTypeID,
		Label:      u.Label,
		LockID:     u.LockID,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

type CreateUnitBody struct {
	Label  string  `json:"label" binding:"required,max=40"`
	LockID *string `json:"lock_id" binding:"omitempty,max=120"`
}
