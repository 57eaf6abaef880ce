package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/snow-cube/paper-manager/internal/services"
	"github.com/snow-cube/paper-manager/internal/utils"
)

// respondError maps service errors onto the response envelope. Unknown
// errors are logged and reported as 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrUserNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTeamMember),
		errors.Is(err, services.ErrNotTeamAdmin):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrHasChildren),
		errors.Is(err, services.ErrHasPapers),
		errors.Is(err, services.ErrHasReferences):
		utils.Conflict(c, err.Error())
	case errors.Is(err, services.ErrParentNotFound),
		errors.Is(err, services.ErrParentOtherTeam),
		errors.Is(err, services.ErrInvalidParent):
		utils.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Unauthorized(c, err.Error())
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("请求处理失败")
		utils.InternalError(c)
	}
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// currentUserID reads the id set by the auth middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
