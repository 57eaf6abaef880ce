package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/snow-cube/paper-manager/internal/category"
	"github.com/snow-cube/paper-manager/internal/models"
)

// ReferenceCategoryService 管理团队私有的参考文献分类
type ReferenceCategoryService struct {
	db    *gorm.DB
	teams *TeamService
}

func NewReferenceCategoryService(db *gorm.DB, teams *TeamService) *ReferenceCategoryService {
	return &ReferenceCategoryService{db: db, teams: teams}
}

// ListCategories returns the team's reference categories. Only team members
// may list them.
func (s *ReferenceCategoryService) ListCategories(userID uint, q models.ReferenceCategoryQuery) ([]models.ReferenceCategory, error) {
	if _, err := s.teams.Role(q.TeamID, userID); err != nil {
		return nil, err
	}

	var categories []models.ReferenceCategory
	if err := s.db.Where("team_id = ?", q.TeamID).Order("id").Find(&categories).Error; err != nil {
		return nil, err
	}

	if q.IncludeStats {
		if err := s.attachReferenceCounts(q.TeamID, categories); err != nil {
			return nil, err
		}
	}
	return categories, nil
}

func (s *ReferenceCategoryService) attachReferenceCounts(teamID uint, categories []models.ReferenceCategory) error {
	var rows []categoryCount
	err := s.db.Model(&models.ReferencePaper{}).
		Select("category_id, COUNT(*) AS total").
		Where("team_id = ? AND category_id IS NOT NULL", teamID).
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("count references: %w", err)
	}

	nodes := make([]category.Record, len(categories))
	for i, c := range categories {
		nodes[i] = category.Record{ID: c.ID, ParentID: c.ParentID}
	}
	totals := rollUpCounts(nodes, countsByCategory(rows))
	for i := range categories {
		total := totals[categories[i].ID]
		categories[i].ReferenceCount = &total
	}
	return nil
}

func (s *ReferenceCategoryService) GetCategoryTree(userID uint, q models.ReferenceCategoryQuery) ([]*category.TreeNode, error) {
	categories, err := s.ListCategories(userID, q)
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

// GetCategory returns one reference category if userID belongs to its team.
func (s *ReferenceCategoryService) GetCategory(userID, id uint) (*models.ReferenceCategory, error) {
	c, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.teams.Role(c.TeamID, userID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ReferenceCategoryService) CreateCategory(userID uint, req *models.ReferenceCategoryCreateRequest) (*models.ReferenceCategory, error) {
	if err := s.teams.RequireManager(req.TeamID, userID); err != nil {
		return nil, err
	}
	if err := s.checkParent(req.TeamID, req.ParentID); err != nil {
		return nil, err
	}
	if err := s.checkSiblingName(req.TeamID, req.Name, req.ParentID, 0); err != nil {
		return nil, err
	}

	c := models.ReferenceCategory{
		TeamID:      req.TeamID,
		Name:        req.Name,
		ParentID:    req.ParentID,
		Description: req.Description,
	}
	if err := s.db.Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ReferenceCategoryService) UpdateCategory(userID, id uint, req *models.ReferenceCategoryUpdateRequest) (*models.ReferenceCategory, error) {
	c, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if err := s.teams.RequireManager(c.TeamID, userID); err != nil {
		return nil, err
	}
	if err := s.checkParent(c.TeamID, req.ParentID); err != nil {
		return nil, err
	}

	cycle, err := createsCycle(id, req.ParentID, s.parentOf)
	if err != nil {
		return nil, err
	}
	if cycle {
		return nil, ErrInvalidParent
	}

	if err := s.checkSiblingName(c.TeamID, req.Name, req.ParentID, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"parent_id":   req.ParentID,
		"description": req.Description,
	}
	if err := s.db.Model(c).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.find(id)
}

func (s *ReferenceCategoryService) DeleteCategory(userID, id uint) error {
	c, err := s.find(id)
	if err != nil {
		return err
	}
	if err := s.teams.RequireManager(c.TeamID, userID); err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&models.ReferenceCategory{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrHasChildren
	}

	if err := s.db.Model(&models.ReferencePaper{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrHasReferences
	}

	return s.db.Delete(&models.ReferenceCategory{}, id).Error
}

func (s *ReferenceCategoryService) find(id uint) (*models.ReferenceCategory, error) {
	var c models.ReferenceCategory
	if err := s.db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *ReferenceCategoryService) parentOf(id uint) (*uint, error) {
	c, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return c.ParentID, nil
}

// 父分类必须存在且属于同一团队
func (s *ReferenceCategoryService) checkParent(teamID uint, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	parent, err := s.find(*parentID)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return ErrParentNotFound
		}
		return err
	}
	if parent.TeamID != teamID {
		return ErrParentOtherTeam
	}
	return nil
}

func (s *ReferenceCategoryService) checkSiblingName(teamID uint, name string, parentID *uint, exceptID uint) error {
	var count int64
	query := s.db.Model(&models.ReferenceCategory{}).Where("team_id = ? AND name = ?", teamID, name)
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
