package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/snow-cube/paper-manager/internal/models"
)

type TeamService struct {
	db *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{db: db}
}

// CreateTeam creates a team owned by userID.
func (s *TeamService) CreateTeam(userID uint, req *models.TeamCreateRequest) (*models.Team, error) {
	team := models.Team{Name: req.Name, Description: req.Description}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		return tx.Create(&models.TeamUser{
			TeamID: team.ID,
			UserID: userID,
			Role:   models.TeamRoleOwner,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	team.Role = models.TeamRoleOwner
	return &team, nil
}

// ListTeams returns the teams userID belongs to, with the user's role.
func (s *TeamService) ListTeams(userID uint) ([]models.Team, error) {
	var rows []struct {
		models.Team
		MemberRole models.TeamRole
	}
	err := s.db.Model(&models.Team{}).
		Select("teams.*, team_users.role AS member_role").
		Joins("JOIN team_users ON team_users.team_id = teams.id").
		Where("team_users.user_id = ?", userID).
		Order("teams.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	teams := make([]models.Team, len(rows))
	for i, row := range rows {
		teams[i] = row.Team
		teams[i].Role = row.MemberRole
	}
	return teams, nil
}

// Role returns userID's role in teamID, ErrTeamNotFound or ErrNotTeamMember.
func (s *TeamService) Role(teamID, userID uint) (models.TeamRole, error) {
	var member models.TeamUser
	err := s.db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if err == nil {
		return member.Role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var count int64
	if err := s.db.Model(&models.Team{}).Where("id = ?", teamID).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return "", ErrTeamNotFound
	}
	return "", ErrNotTeamMember
}

// RequireManager returns ErrNotTeamAdmin unless userID owns or administers
// teamID.
func (s *TeamService) RequireManager(teamID, userID uint) error {
	role, err := s.Role(teamID, userID)
	if err != nil {
		if errors.Is(err, ErrNotTeamMember) {
			return ErrNotTeamAdmin
		}
		return err
	}
	if !role.CanManage() {
		return ErrNotTeamAdmin
	}
	return nil
}

// AddMember adds a user to the team. Only owners may grant the owner role.
func (s *TeamService) AddMember(actorID, teamID uint, req *models.TeamMemberRequest) (*models.TeamUser, error) {
	actorRole, err := s.Role(teamID, actorID)
	if err != nil {
		if errors.Is(err, ErrNotTeamMember) {
			return nil, ErrNotTeamAdmin
		}
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.TeamRoleMember
	}
	if !actorRole.CanManage() || (role == models.TeamRoleOwner && actorRole != models.TeamRoleOwner) {
		return nil, ErrNotTeamAdmin
	}

	var user models.User
	if err := s.db.Where("id = ? AND is_active = ?", req.UserID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if _, err := s.Role(teamID, req.UserID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, ErrNotTeamMember) {
		return nil, err
	}

	member := models.TeamUser{TeamID: teamID, UserID: req.UserID, Role: role}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}
