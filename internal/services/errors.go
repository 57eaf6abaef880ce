package services

import "errors"

var (
	ErrCategoryNotFound = errors.New("分类不存在")
	ErrParentNotFound   = errors.New("父分类不存在")
	ErrParentOtherTeam  = errors.New("父分类必须属于同一团队")
	ErrDuplicateName    = errors.New("同级分类名称已存在")
	ErrInvalidParent    = errors.New("不能将分类移动到自身或其子分类下")
	ErrHasChildren      = errors.New("该分类下还有子分类，请先删除子分类")
	ErrHasPapers        = errors.New("该分类下还有论文，请先移动或删除论文")
	ErrHasReferences    = errors.New("该分类下还有参考文献，请先移动或删除")

	ErrTeamNotFound  = errors.New("团队不存在")
	ErrNotTeamMember = errors.New("不是该团队成员")
	ErrNotTeamAdmin  = errors.New("只有团队管理员可以执行此操作")
	ErrAlreadyMember = errors.New("用户已是团队成员")

	ErrUserNotFound       = errors.New("用户不存在")
	ErrUsernameTaken      = errors.New("用户名已存在")
	ErrEmailTaken         = errors.New("邮箱已存在")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
)
