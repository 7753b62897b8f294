package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kystlys/stay-engine/internal/auth"
	"github.com/kystlys/stay-engine/internal/availability"
	availabilityHttp "github.com/kystlys/stay-engine/internal/availability/http"
	"github.com/kystlys/stay-engine/internal/booking"
	bookingHttp "github.com/kystlys/stay-engine/internal/booking/http"
	"github.com/kystlys/stay-engine/internal/inventory"
	inventoryHttp "github.com/kystlys/stay-engine/internal/inventory/http"
	"github.com/kystlys/stay-engine/internal/roomtype"
	roomtypeHttp "github.com/kystlys/stay-engine/internal/roomtype/http"
	"github.com/kystlys/stay-engine/internal/staff"
	staffHttp "github.com/kystlys/stay-engine/internal/staff/http"
)

// Config holds everything the router needs to mount the API.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *zap.Logger

	StaffService        staff.Service
	RoomTypeService     roomtype.Service
	PhotoService        *roomtype.PhotoService
	AvailabilityService availability.Service
	QueryService        *inventory.QueryService
	BookingService      booking.Service
	JWTManager          *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestLogger(cfg.Logger), Recovery(cfg.Logger))

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		"http://localhost:8081", // Swagger
		"http://localhost:5173", // Booking widget dev server
	}
	if origins := splitOrigins(cfg.ProdOrigins); cfg.IsProduction && len(origins) > 0 {
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", bookingHttp.IdempotencyHeader, requestIDHeader}
	config.ExposeHeaders = []string{requestIDHeader}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid staff JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// optionalAuth: Identifies staff on public routes without rejecting guests.
	optionalAuth := auth.OptionalAuth(cfg.JWTManager)

	staffHandler := staffHttp.NewHandler(cfg.StaffService, cfg.JWTManager)
	roomTypeHandler := roomtypeHttp.NewHandler(cfg.RoomTypeService, cfg.PhotoService)
	availabilityHandler := availabilityHttp.NewHandler(cfg.AvailabilityService)
	inventoryHandler := inventoryHttp.NewHandler(cfg.QueryService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		staffHttp.RegisterRoutes(v1, staffHandler, authMiddleware)
		roomtypeHttp.RegisterRoutes(v1, roomTypeHandler, authMiddleware, optionalAuth)
		availabilityHttp.RegisterRoutes(v1, availabilityHandler, authMiddleware)
		inventoryHttp.RegisterRoutes(v1, inventoryHandler)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
	}

	return r
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
