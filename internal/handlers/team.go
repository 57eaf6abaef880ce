package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snow-cube/paper-manager/internal/models"
	"github.com/snow-cube/paper-manager/internal/services"
	"github.com/snow-cube/paper-manager/internal/utils"
	"github.com/snow-cube/paper-manager/pkg/validator"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

func (h *TeamHandler) GetTeams(c *gin.Context) {
	userID, _ := currentUserID(c)

	teams, err := h.teamService.ListTeams(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, teams)
}

func (h *TeamHandler) CreateTeam(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req models.TeamCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		utils.ValidationError(c, validator.Messages(err))
		return
	}

	team, err := h.teamService.CreateTeam(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "创建成功", team)
}

func (h *TeamHandler) AddMember(c *gin.Context) {
	userID, _ := currentUserID(c)
	teamID, ok := paramID(c, "id")
	if !ok {
		utils.Error(c, http.StatusBadRequest, "无效的团队ID")
		return
	}

	var req models.TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		utils.ValidationError(c, validator.Messages(err))
		return
	}

	member, err := h.teamService.AddMember(userID, teamID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "添加成功", member)
}
