package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"agro-herders-service/internal/domain/agro"
	"agro-herders-service/internal/service"
)

const apiVersion = "1.0.0"

// HealthCheck reports whether the database answers.
type HealthCheck func(ctx context.Context) error

type Services struct {
	Auth         *service.AuthService
	Herders      *service.HerderService
	Routes       *service.RouteService
	Verification *service.VerificationService
	Dashboard    *service.DashboardService
}

type Handler struct {
	services Services
	health   HealthCheck
	log      zerolog.Logger
}

func NewHandler(services Services, health HealthCheck, log zerolog.Logger) *Handler {
	return &Handler{
		services: services,
		health:   health,
		log:      log.With().Str("component", "http").Logger(),
	}
}

// Register mounts every endpoint. List endpoints answer with and without a
// trailing slash.
func (h *Handler) Register(r *gin.Engine, authMiddleware, loginLimiter gin.HandlerFunc) {
	r.GET("/", h.root)
	r.GET("/health", h.healthCheck)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", loginLimiter, h.login)
		authGroup.POST("/logout", authMiddleware, h.logout)
		authGroup.GET("/me", authMiddleware, h.me)
	}

	herders := r.Group("/herders", authMiddleware)
	{
		herders.POST("/register", h.registerHerder)
		herders.GET("", h.listHerders)
		herders.GET("/", h.listHerders)
		herders.POST("/livestock", h.addLivestock)
		herders.GET("/:id", h.getHerder)
		herders.PATCH("/:id/status", h.updateHerderStatus)
	}

	routes := r.Group("/routes", authMiddleware)
	{
		routes.GET("", h.listRoutes)
		routes.GET("/", h.listRoutes)
		routes.POST("", h.createRoute)
		routes.POST("/", h.createRoute)
		routes.POST("/check-location", h.checkLocation)
		routes.GET("/:id", h.getRoute)
		routes.PATCH("/:id/status", h.updateRouteStatus)
	}

	verify := r.Group("/verify", authMiddleware)
	{
		verify.POST("/full", h.verifyFull)
		verify.POST("/face", h.verifyFace)
		verify.POST("/fingerprint", h.verifyFingerprint)
		verify.POST("/rfid", h.verifyRFID)
	}

	dashboard := r.Group("/dashboard", authMiddleware)
	{
		dashboard.GET("/stats", h.dashboardStats)
	}
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Connexxion Agro-Herders API is running",
		"version": apiVersion,
		"status":  "healthy",
	})
}

func (h *Handler) healthCheck(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.log.Warn().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "degraded",
				"api":      "operational",
				"database": "unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"api":      "operational",
		"database": "connected",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.services.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.services.Auth.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.services.Auth.Me(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) registerHerder(c *gin.Context) {
	var req agro.HerderRegistration
	if !h.bind(c, &req) {
		return
	}
	herder, err := h.services.Herders.Register(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Herder registered successfully",
		"herder_id": herder.ID,
		"herder":    herder,
	})
}

func (h *Handler) listHerders(c *gin.Context) {
	herders, err := h.services.Herders.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, herders)
}

func (h *Handler) getHerder(c *gin.Context) {
	id, ok := h.pathID(c, "herder")
	if !ok {
		return
	}
	details, err := h.services.Herders.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateHerderStatus(c *gin.Context) {
	id, ok := h.pathID(c, "herder")
	if !ok {
		return
	}
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}
	herder, err := h.services.Herders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, herder)
}

func (h *Handler) addLivestock(c *gin.Context) {
	var req agro.LivestockRegistration
	if !h.bind(c, &req) {
		return
	}
	livestock, err := h.services.Herders.AddLivestock(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, livestock)
}

func (h *Handler) listRoutes(c *gin.Context) {
	routes, err := h.services.Routes.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

func (h *Handler) getRoute(c *gin.Context) {
	id, ok := h.pathID(c, "route")
	if !ok {
		return
	}
	route, err := h.services.Routes.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

func (h *Handler) createRoute(c *gin.Context) {
	var req agro.RouteCreate
	if !h.bind(c, &req) {
		return
	}
	route, err := h.services.Routes.Create(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

func (h *Handler) updateRouteStatus(c *gin.Context) {
	id, ok := h.pathID(c, "route")
	if !ok {
		return
	}
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}
	route, err := h.services.Routes.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *Handler) checkLocation(c *gin.Context) {
	var req locationRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, errorResponse("latitude and longitude are required"))
		return
	}
	res, err := h.services.Routes.CheckLocation(c.Request.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) verifyFull(c *gin.Context) {
	var req agro.FullVerificationRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.services.Verification.Verify(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type faceRequest struct {
	FaceVector string `json:"face_vector"`
}

func (h *Handler) verifyFace(c *gin.Context) {
	var req faceRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.services.Verification.VerifyFace(c.Request.Context(), currentUserID(c), req.FaceVector)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type fingerprintRequest struct {
	FingerprintHash string `json:"fingerprint_hash"`
}

func (h *Handler) verifyFingerprint(c *gin.Context) {
	var req fingerprintRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.services.Verification.VerifyFingerprint(c.Request.Context(), currentUserID(c), req.FingerprintHash)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type rfidRequest struct {
	RFIDCode string `json:"rfid_code"`
}

func (h *Handler) verifyRFID(c *gin.Context) {
	var req rfidRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.services.Verification.VerifyRFID(c.Request.Context(), currentUserID(c), req.RFIDCode)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) dashboardStats(c *gin.Context) {
	stats, err := h.services.Dashboard.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func (h *Handler) pathID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid "+what+" id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(detail(err, service.ErrInvalidInput)))
	case errors.Is(err, service.ErrUnauthorized):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, errorResponse(detail(err, service.ErrUnauthorized)))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(detail(err, service.ErrNotFound)))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(detail(err, service.ErrConflict)))
	case errors.Is(err, service.ErrDependency):
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("dependency unavailable")
		c.JSON(http.StatusServiceUnavailable, errorResponse("service temporarily unavailable"))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

// detail drops the sentinel prefix so clients see only the message.
func detail(err, sentinel error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}

func errorResponse(message string) gin.H {
	return gin.H{
		"detail": message,
	}
}
