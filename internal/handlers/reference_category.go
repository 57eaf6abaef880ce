package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snow-cube/paper-manager/internal/models"
	"github.com/snow-cube/paper-manager/internal/services"
	"github.com/snow-cube/paper-manager/internal/utils"
	"github.com/snow-cube/paper-manager/pkg/validator"
)

// ReferenceCategoryHandler 处理团队参考文献分类，团队权限由服务层检查
type ReferenceCategoryHandler struct {
	service *services.ReferenceCategoryService
}

func NewReferenceCategoryHandler(service *services.ReferenceCategoryService) *ReferenceCategoryHandler {
	return &ReferenceCategoryHandler{service: service}
}

func (h *ReferenceCategoryHandler) bindQuery(c *gin.Context) (models.ReferenceCategoryQuery, bool) {
	var q models.ReferenceCategoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return q, false
	}
	if err := validator.ValidateStruct(&q); err != nil {
		utils.ValidationError(c, validator.Messages(err))
		return q, false
	}
	return q, true
}

func (h *ReferenceCategoryHandler) GetCategories(c *gin.Context) {
	userID, _ := currentUserID(c)
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}

	categories, err := h.service.ListCategories(userID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, categories)
}

func (h *ReferenceCategoryHandler) GetCategoryTree(c *gin.Context) {
	userID, _ := currentUserID(c)
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}

	tree, err := h.service.GetCategoryTree(userID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, tree)
}

func (h *ReferenceCategoryHandler) GetCategory(c *gin.Context) {
	userID, _ := currentUserID(c)
	categoryID, ok := paramID(c, "id")
	if !ok {
		utils.Error(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	category, err := h.service.GetCategory(userID, categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, category)
}

func (h *ReferenceCategoryHandler) CreateCategory(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req models.ReferenceCategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		utils.ValidationError(c, validator.Messages(err))
		return
	}

	category, err := h.service.CreateCategory(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "创建成功", category)
}

func (h *ReferenceCategoryHandler) UpdateCategory(c *gin.Context) {
	userID, _ := currentUserID(c)
	categoryID, ok := paramID(c, "id")
	if !ok {
		utils.Error(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	var req models.ReferenceCategoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		utils.ValidationError(c, validator.Messages(err))
		return
	}

	category, err := h.service.UpdateCategory(userID, categoryID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "更新成功", category)
}

func (h *ReferenceCategoryHandler) DeleteCategory(c *gin.Context) {
	userID, _ := currentUserID(c)
	categoryID, ok := paramID(c, "id")
	if !ok {
		utils.Error(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	if err := h.service.DeleteCategory(userID, categoryID); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "删除成功", nil)
}
