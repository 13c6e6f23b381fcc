package v1

import (
	"net/http"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/audit"

	"github.com/gin-gonic/gin"
)

const avatarFormField = "avatar"

type ProfileHandler struct {
	profileUC domain.ProfileUsecase
	audit     *audit.Logger
}

func NewProfileHandler(r *gin.RouterGroup, profileUC domain.ProfileUsecase, auditLog *audit.Logger, uploadLimit gin.HandlerFunc) {
	handler := &ProfileHandler{profileUC: profileUC, audit: auditLog}

	profile := r.Group("/profile")
	{
		profile.GET("/me", handler.GetMe)
		profile.PUT("/me", handler.UpdateMe)
		profile.PUT("/me/username", handler.ChangeUsername)
		profile.GET("/username/check", handler.CheckUsername)
		profile.POST("/me/avatar", uploadLimit, handler.UploadAvatar)
		profile.DELETE("/me/avatar", handler.RemoveAvatar)
	}
}

// GetMe godoc
// @Summary      Get my profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Profile}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /profile/me [get]
// @Security     BearerAuth
func (h *ProfileHandler) GetMe(c *gin.Context) {
	profile, err := h.profileUC.GetProfile(c.Request.Context(), c.GetString(string(domain.KeyUserID)))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile retrieved", profile)
}

// UpdateMe godoc
// @Summary      Update account settings
// @Description  Omitted fields are left unchanged
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request  body      domain.UpdateSettingsRequest  true  "Settings"
// @Success      200      {object}  response.Response{data=domain.Profile}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /profile/me [put]
// @Security     BearerAuth
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	var req domain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	profile, err := h.profileUC.UpdateSettings(c.Request.Context(), c.GetString(string(domain.KeyUserID)), &req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Settings saved", profile)
}

// ChangeUsername godoc
// @Summary      Change username
// @Description  Allowed once every 90 days
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request  body      domain.ChangeUsernameRequest  true  "New username"
// @Success      200      {object}  response.Response{data=domain.Profile}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /profile/me/username [put]
// @Security     BearerAuth
func (h *ProfileHandler) ChangeUsername(c *gin.Context) {
	var req domain.ChangeUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	userID := c.GetString(string(domain.KeyUserID))
	profile, err := h.profileUC.ChangeUsername(c.Request.Context(), userID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	h.audit.Log(c.Request.Context(), audit.Event{
		Event:        audit.EventUsernameChanged,
		SubjectType:  "user_id",
		SubjectValue: userID,
		IP:           c.ClientIP(),
		RequestID:    c.GetString(string(domain.KeyRequestID)),
	})
	response.Success(c, http.StatusOK, "Username updated", profile)
}

// CheckUsername godoc
// @Summary      Check username availability
// @Tags         profile
// @Produce      json
// @Param        username  query     string  true  "Candidate username"
// @Success      200       {object}  response.Response{data=domain.UsernameCheck}
// @Router       /profile/username/check [get]
// @Security     BearerAuth
func (h *ProfileHandler) CheckUsername(c *gin.Context) {
	check, err := h.profileUC.CheckUsername(c.Request.Context(), c.GetString(string(domain.KeyUserID)), c.Query("username"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Username checked", check)
}

// UploadAvatar godoc
// @Summary      Upload avatar
// @Description  JPEG, PNG, GIF or WebP. The image is resized and stored as JPEG.
// @Tags         profile
// @Accept       multipart/form-data
// @Produce      json
// @Param        avatar  formData  file  true  "Image file"
// @Success      200     {object}  response.Response{data=domain.Profile}
// @Failure      400     {object}  response.Response
// @Failure      503     {object}  response.Response
// @Router       /profile/me/avatar [post]
// @Security     BearerAuth
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	fileHeader, err := c.FormFile(avatarFormField)
	if err != nil {
		c.Error(apperror.BadRequest("Avatar file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.BadRequest("Could not read the uploaded file"))
		return
	}
	defer file.Close()

	profile, err := h.profileUC.UploadAvatar(c.Request.Context(), c.GetString(string(domain.KeyUserID)), file, fileHeader.Size)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Avatar updated", profile)
}

// RemoveAvatar godoc
// @Summary      Remove avatar
// @Tags         profile
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Profile}
// @Router       /profile/me/avatar [delete]
// @Security     BearerAuth
func (h *ProfileHandler) RemoveAvatar(c *gin.Context) {
	profile, err := h.profileUC.RemoveAvatar(c.Request.Context(), c.GetString(string(domain.KeyUserID)))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Avatar removed", profile)
}
