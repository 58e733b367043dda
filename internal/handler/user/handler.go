package user

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carelink-api/internal/handler"
	"github.com/jwalitptl/carelink-api/internal/middleware"
	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/service/user"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
)

type createPatientRequest struct {
	user.CreateInput
	PhysicianID int64 `json:"physician_id" binding:"required,gt=0"`
}

type updatePatientRequest struct {
	model.UserPatch
	PhysicianID *int64 `json:"physician_id" binding:"omitempty,gt=0"`
}

// Handler serves admins, physicians and patients, which are roles of the
// same user record.
type Handler struct {
	service user.UserServicer
	auth    *middleware.AuthMiddleware
}

func NewHandler(service user.UserServicer, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := h.auth.RequireRoles(model.RoleAdmin)

	admins := r.Group("/admins", admin)
	{
		admins.GET("", h.list(model.RoleAdmin))
		admins.GET("/:id", h.get(model.RoleAdmin))
		admins.POST("", h.create(model.RoleAdmin))
		admins.PUT("/:id", h.update(model.RoleAdmin))
		admins.DELETE("/:id", h.delete(model.RoleAdmin))
	}

	physicians := r.Group("/physicians")
	{
		anyone := h.auth.RequireRoles(model.RoleAdmin, model.RolePhysician, model.RolePatient)
		physicians.GET("", anyone, h.list(model.RolePhysician))
		physicians.GET("/:id", anyone, h.get(model.RolePhysician))
		physicians.GET("/:id/patients", h.auth.RequireRoles(model.RoleAdmin, model.RolePhysician), h.PatientsOf)
		physicians.POST("", admin, h.create(model.RolePhysician))
		physicians.PUT("/:id", admin, h.update(model.RolePhysician))
		physicians.DELETE("/:id", admin, h.delete(model.RolePhysician))
	}

	patients := r.Group("/patients")
	{
		staff := h.auth.RequireRoles(model.RoleAdmin, model.RolePhysician)
		patients.GET("", staff, h.list(model.RolePatient))
		patients.GET("/:id", h.auth.RequireRoles(model.AllRoles...), h.get(model.RolePatient))
		patients.GET("/:id/physician", h.auth.RequireRoles(model.AllRoles...), h.PhysicianOf)
		patients.POST("", admin, h.CreatePatient)
		patients.PUT("/:id", admin, h.UpdatePatient)
		patients.DELETE("/:id", admin, h.delete(model.RolePatient))
	}
}

func (h *Handler) list(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.service.List(c.Request.Context(), role)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, users)
	}
}

func (h *Handler) get(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httputil.ParseID(c, "id", string(role))
		if !ok {
			return
		}
		u, err := h.service.Get(c.Request.Context(), role, id)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, u)
	}
}

func (h *Handler) create(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.CreateInput
		if !handler.BindJSON(c, &req, "") {
			return
		}
		u, err := h.service.Create(c.Request.Context(), role, req)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusCreated, u)
	}
}

func (h *Handler) update(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httputil.ParseID(c, "id", string(role))
		if !ok {
			return
		}
		var patch model.UserPatch
		if !handler.BindJSON(c, &patch, "") {
			return
		}
		u, err := h.service.Update(c.Request.Context(), role, id, patch)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, u)
	}
}

func (h *Handler) delete(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httputil.ParseID(c, "id", string(role))
		if !ok {
			return
		}
		if err := h.service.Delete(c.Request.Context(), role, id); err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithMessage(c, fmt.Sprintf("%s deleted successfully", role))
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if !handler.BindJSON(c, &req, "") {
		return
	}
	u, err := h.service.CreatePatient(c.Request.Context(), req.CreateInput, req.PhysicianID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, u)
}

// UpdatePatient applies profile changes and, when physician_id is given,
// moves the patient to that physician.
func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", string(model.RolePatient))
	if !ok {
		return
	}
	var req updatePatientRequest
	if !handler.BindJSON(c, &req, "") {
		return
	}

	ctx := c.Request.Context()
	if req.PhysicianID != nil {
		if err := h.service.ReassignPhysician(ctx, id, *req.PhysicianID); err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		if req.UserPatch.Empty() {
			u, err := h.service.Get(ctx, model.RolePatient, id)
			if err != nil {
				httputil.RespondWithError(c, err)
				return
			}
			httputil.RespondWithSuccess(c, http.StatusOK, u)
			return
		}
	}

	u, err := h.service.Update(ctx, model.RolePatient, id, req.UserPatch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, u)
}

func (h *Handler) PatientsOf(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", string(model.RolePhysician))
	if !ok {
		return
	}
	patients, err := h.service.PatientsOf(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, patients)
}

func (h *Handler) PhysicianOf(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", string(model.RolePatient))
	if !ok {
		return
	}
	physician, err := h.service.PhysicianOf(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, physician)
}
