package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/snow-cube/paper-manager/internal/category"
	"github.com/snow-cube/paper-manager/internal/models"
)

// CategoryService 管理全局论文分类
type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// ListCategories returns every paper category ordered by sort order and id.
// With IncludeStats each category carries the number of papers in it and
// all of its subcategories, optionally limited to one paper type.
func (s *CategoryService) ListCategories(q models.CategoryQuery) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Order("sort_order, id").Find(&categories).Error; err != nil {
		return nil, err
	}

	if q.IncludeStats {
		if err := s.attachPaperCounts(categories, q.PaperType); err != nil {
			return nil, err
		}
	}
	return categories, nil
}

func (s *CategoryService) attachPaperCounts(categories []models.Category, paperType string) error {
	var rows []categoryCount
	query := s.db.Model(&models.Paper{}).
		Select("category_id, COUNT(*) AS total").
		Where("category_id IS NOT NULL").
		Group("category_id")
	if paperType != "" {
		query = query.Where("paper_type = ?", paperType)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return fmt.Errorf("count papers: %w", err)
	}

	nodes := make([]category.Record, len(categories))
	for i, c := range categories {
		nodes[i] = category.Record{ID: c.ID, ParentID: c.ParentID}
	}
	totals := rollUpCounts(nodes, countsByCategory(rows))
	for i := range categories {
		total := totals[categories[i].ID]
		categories[i].PaperCount = &total
	}
	return nil
}

// GetCategoryTree returns the paper categories as a forest.
func (s *CategoryService) GetCategoryTree(q models.CategoryQuery) ([]*category.TreeNode, error) {
	categories, err := s.ListCategories(q)
	if err != nil {
		return nil, err
	}

	records := make([]category.Record, 0, len(categories))
	for i := range categories {
		rec, err := categories[i].Record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return category.BuildTree(records), nil
}

func (s *CategoryService) GetCategory(id uint) (*models.Category, error) {
	var c models.Category
	if err := s.db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *CategoryService) CreateCategory(req *models.CategoryCreateRequest) (*models.Category, error) {
	// 检查父分类是否存在
	if req.ParentID != nil {
		if _, err := s.GetCategory(*req.ParentID); err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}

	// 检查同级分类名称是否重复
	if err := s.checkSiblingName(req.Name, req.ParentID, 0); err != nil {
		return nil, err
	}

	c := models.Category{
		Name:        req.Name,
		ParentID:    req.ParentID,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}
	if err := s.db.Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryService) UpdateCategory(id uint, req *models.CategoryCreateRequest) (*models.Category, error) {
	c, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if _, err := s.GetCategory(*req.ParentID); err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}

	// 不能设置为自己或子孙分类的子分类
	cycle, err := createsCycle(id, req.ParentID, s.parentOf)
	if err != nil {
		return nil, err
	}
	if cycle {
		return nil, ErrInvalidParent
	}

	if err := s.checkSiblingName(req.Name, req.ParentID, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"parent_id":   req.ParentID,
		"description": req.Description,
		"sort_order":  req.SortOrder,
	}
	if err := s.db.Model(c).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetCategory(id)
}

func (s *CategoryService) DeleteCategory(id uint) error {
	if _, err := s.GetCategory(id); err != nil {
		return err
	}

	// 检查是否有子分类
	var count int64
	if err := s.db.Model(&models.Category{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrHasChildren
	}

	// 检查是否有关联的论文
	if err := s.db.Model(&models.Paper{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrHasPapers
	}

	return s.db.Delete(&models.Category{}, id).Error
}

func (s *CategoryService) parentOf(id uint) (*uint, error) {
	c, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}
	return c.ParentID, nil
}

func (s *CategoryService) checkSiblingName(name string, parentID *uint, exceptID uint) error {
	var count int64
	query := s.db.Model(&models.Category{}).Where("name = ?", name)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateName
	}
	return nil
}
