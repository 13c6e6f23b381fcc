package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminUC domain.AdminUsecase
}

func NewAdminHandler(protected *gin.RouterGroup, adminUC domain.AdminUsecase, adminOnly gin.HandlerFunc) {
	handler := &AdminHandler{adminUC: adminUC}

	admin := protected.Group("/admin", adminOnly)
	{
		// Beta registrations
		admin.GET("/registrations", handler.ListRegistrations)
		admin.POST("/registrations/:email/approve", handler.ApproveRegistration)
		admin.GET("/registrations/export", handler.ExportRegistrations)
	}
}

// ListRegistrations godoc
// @Summary      List beta registrations
// @Description  Returns a paginated list of registrations, newest first, with an optional status filter
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status (pending, approved)"
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Items per page"
// @Success      200     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Router       /admin/registrations [get]
func (h *AdminHandler) ListRegistrations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.adminUC.ListRegistrations(c.Request.Context(), domain.RegistrationFilter{
		Status: domain.RegistrationStatus(c.Query("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Registrations retrieved", result)
}

// ApproveRegistration godoc
// @Summary      Approve a registration
// @Description  Moves a pending registration to approved
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        email  path      string  true  "Registered email"
// @Success      200    {object}  response.Response
// @Failure      403    {object}  response.Response
// @Failure      404    {object}  response.Response
// @Router       /admin/registrations/{email}/approve [post]
func (h *AdminHandler) ApproveRegistration(c *gin.Context) {
	email := c.Param("email")
	if err := h.adminUC.ApproveRegistration(c.Request.Context(), email); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Registration approved", gin.H{"email": domain.NormalizeEmail(email)})
}

// ExportRegistrations godoc
// @Summary      Export registrations
// @Description  Download registrations as a spreadsheet
// @Tags         admin
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Security     BearerAuth
// @Param        format  query  string  false  "xlsx (default) or csv"
// @Param        status  query  string  false  "Filter by status"
// @Success      200
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /admin/registrations/export [get]
func (h *AdminHandler) ExportRegistrations(c *gin.Context) {
	file, err := h.adminUC.ExportRegistrations(
		c.Request.Context(),
		domain.RegistrationStatus(c.Query("status")),
		domain.ExportFormat(c.Query("format")),
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
