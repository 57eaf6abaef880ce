package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snow-cube/paper-manager/internal/models"
	"github.com/snow-cube/paper-manager/internal/services"
	"github.com/snow-cube/paper-manager/internal/utils"
	"github.com/snow-cube/paper-manager/pkg/validator"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
}

func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (h *CategoryHandler) bindQuery(c *gin.Context) (models.CategoryQuery, bool) {
	var q models.CategoryQuery
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

// GetCategories 返回扁平的分类列表
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}

	categories, err := h.categoryService.ListCategories(q)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, categories)
}

func (h *CategoryHandler) GetCategoryTree(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}

	tree, err := h.categoryService.GetCategoryTree(q)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, tree)
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	categoryID, ok := paramID(c, "id")
	if !ok {
		utils.Error(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	category, err := h.categoryService.GetCategory(categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, category)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req models.CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		utils.ValidationError(c, validator.Messages(err))
		return
	}

	category, err := h.categoryService.CreateCategory(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Created(c, "创建成功", category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	categoryID, ok := paramID(c, "id")
	if !ok {
		utils.Error(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	var req models.CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		utils.ValidationError(c, validator.Messages(err))
		return
	}

	category, err := h.categoryService.UpdateCategory(categoryID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "更新成功", category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	categoryID, ok := paramID(c, "id")
	if !ok {
		utils.Error(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	if err := h.categoryService.DeleteCategory(categoryID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "删除成功", nil)
}
