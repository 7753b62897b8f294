package roomtype

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kystlys/stay-engine/internal/pkg/patch"
	"github.com/kystlys/stay-engine/internal/pkg/storage"
)

type memRepo struct {
	mu    sync.Mutex
	seq   int
	types map[string]*RoomType
	units map[string]*Unit
}

func newMemRepo() *memRepo {
	return &memRepo{types: map[string]*RoomType{}, units: map[string]*Unit{}}
}

func (m *memRepo) nextID() string {
	m.seq++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
}

func (m *memRepo) Create(ctx context.Context, rt *RoomType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt.ID = m.nextID()
	rt.CreatedAt = time.Now()
	rt.UpdatedAt = rt.CreatedAt
	cp := *rt
	m.types[rt.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*RoomType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.types[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (m *memRepo) List(ctx context.Context, filter Filter) ([]*RoomType, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*RoomType
	for _, rt := range m.types {
		if filter.ActiveOnly && !rt.IsActive {
			continue
		}
		cp := *rt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *memRepo) Update(ctx context.Context, id string, cols patch.Columns) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.types[id]
	if !ok {
		return ErrNotFound
	}
	for col, v := range cols {
		switch col {
		case "name":
			rt.Name = v.(string)
		case "description":
			rt.Description = v.(string)
		case "max_guests":
			rt.MaxGuests = v.(int)
		case "base_price":
			rt.BasePrice = v.(int64)
		case "unit_count":
			rt.UnitCount = v.(*int)
		case "is_active":
			rt.IsActive = v.(bool)
		case "photo_path":
			s := v.(string)
			rt.PhotoPath = &s
		case "thumb_path":
			s := v.(string)
			rt.ThumbPath = &s
		default:
			return fmt.Errorf("unexpected column %q", col)
		}
	}
	return nil
}

func (m *memRepo) SetPhoto(ctx context.Context, id, photoPath, thumbPath string) error {
	return m.Update(ctx, id, patch.Columns{"photo_path": photoPath, "thumb_path": thumbPath})
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[id]; !ok {
		return ErrNotFound
	}
	delete(m.types, id)
	return nil
}

func (m *memRepo) CreateUnit(ctx context.Context, u *Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.nextID()
	cp := *u
	m.units[u.ID] = &cp
	return nil
}

func (m *memRepo) GetUnit(ctx context.Context, id string) (*Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return nil, ErrUnitNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) ListUnits(ctx context.Context, roomTypeID string) ([]*Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Unit
	for _, u := range m.units {
		if u.RoomTypeID == roomTypeID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (m *memRepo) UpdateUnit(ctx context.Context, id string, cols patch.Columns) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return ErrUnitNotFound
	}
	for col, v := range cols {
		switch col {
		case "label":
			u.Label = v.(string)
		case "lock_id":
			u.LockID = v.(*string)
		case "is_active":
			u.IsActive = v.(bool)
		}
	}
	return nil
}

func (m *memRepo) DeleteUnit(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.units, id)
	return nil
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	negative := -1

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"blank name", CreateRequest{Name: "  ", MaxGuests: 2}, ErrNameRequired},
		{"no guests", CreateRequest{Name: "Kystværelse", MaxGuests: 0}, ErrInvalidMaxGuests},
		{"negative price", CreateRequest{Name: "Kystværelse", MaxGuests: 2, BasePrice: -5}, ErrInvalidPrice},
		{"negative units", CreateRequest{Name: "Kystværelse", MaxGuests: 2, UnitCount: &negative}, ErrInvalidUnitCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateAndPatch(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	rt, err := svc.Create(ctx, CreateRequest{Name: " Havsuite ", MaxGuests: 4, BasePrice: 180000})
	require.NoError(t, err)
	assert.Equal(t, "Havsuite", rt.Name)
	assert.True(t, rt.IsActive)
	assert.Equal(t, 1, rt.ConfiguredUnits(), "nil unit count means a single room")

	three := 3
	updated, err := svc.Update(ctx, rt.ID, Patch{
		BasePrice: patch.Set[int64](200000),
		UnitCount: patch.Set(&three),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200000), updated.BasePrice)
	assert.Equal(t, 3, updated.ConfiguredUnits())
	assert.Equal(t, "Havsuite", updated.Name, "unset fields stay unchanged")

	_, err = svc.Update(ctx, rt.ID, Patch{Name: patch.Set("")})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Update(ctx, "missing", Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnits(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	rt, err := svc.Create(ctx, CreateRequest{Name: "Kystværelse", MaxGuests: 2, BasePrice: 120000})
	require.NoError(t, err)

	_, err = svc.CreateUnit(ctx, CreateUnitRequest{RoomTypeID: rt.ID, Label: ""})
	assert.ErrorIs(t, err, ErrLabelRequired)

	_, err = svc.CreateUnit(ctx, CreateUnitRequest{RoomTypeID: "nope", Label: "101"})
	assert.ErrorIs(t, err, ErrNotFound)

	lock := "lock-102"
	_, err = svc.CreateUnit(ctx, CreateUnitRequest{RoomTypeID: rt.ID, Label: "102", LockID: &lock})
	require.NoError(t, err)
	u101, err := svc.CreateUnit(ctx, CreateUnitRequest{RoomTypeID: rt.ID, Label: "101"})
	require.NoError(t, err)

	units, err := svc.ListUnits(ctx, rt.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "101", units[0].Label)

	updated, err := svc.UpdateUnit(ctx, u101.ID, UnitPatch{IsActive: patch.Set(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestPhotoUpload(t *testing.T) {
	repo := newMemRepo()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	rt, err := NewService(repo).Create(ctx, CreateRequest{Name: "Havsuite", MaxGuests: 2})
	require.NoError(t, err)

	photos := NewPhotoService(repo, store)

	_, err = photos.Upload(ctx, rt.ID, strings.NewReader("definitely not a png"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1200, 900))))

	updated, err := photos.Upload(ctx, rt.ID, &buf)
	require.NoError(t, err)
	require.NotNil(t, updated.PhotoPath)
	require.NotNil(t, updated.ThumbPath)

	rc, err := photos.Open(ctx, rt.ID, true)
	require.NoError(t, err)
	defer rc.Close()
	thumb, _, err := image.Decode(rc)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 300), thumb.Bounds().Size())

	_, err = io.Copy(io.Discard, rc)
	assert.NoError(t, err)
}
