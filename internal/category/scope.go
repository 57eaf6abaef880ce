package category

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind 区分论文分类(公共)与参考文献分类(团队私有)。
type Kind int

const (
	KindPaper Kind = iota
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindPaper:
		return "paper"
	case KindReference:
		return "reference"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Scope selects which backend collection of categories is loaded.
// TeamID is required for KindReference and ignored for KindPaper.
type Scope struct {
	Kind   Kind
	TeamID uint
}

func PaperScope() Scope {
	return Scope{Kind: KindPaper}
}

func ReferenceScope(teamID uint) Scope {
	return Scope{Kind: KindReference, TeamID: teamID}
}

// Normalize validates s and clears fields that do not apply to its kind,
// so two normalized scopes can be compared with ==.
func (s Scope) Normalize() (Scope, error) {
	switch s.Kind {
	case KindPaper:
		return Scope{Kind: KindPaper}, nil
	case KindReference:
		if s.TeamID == 0 {
			return Scope{}, ErrMissingScopeParameter
		}
		return s, nil
	default:
		return Scope{}, fmt.Errorf("unknown category kind %d", int(s.Kind))
	}
}

func (s Scope) String() string {
	if s.Kind == KindReference {
		return s.Kind.String() + ":" + strconv.FormatUint(uint64(s.TeamID), 10)
	}
	return s.Kind.String()
}

// ParseScope accepts "paper", "papers", "reference:<team>" and
// "references:<team>".
func ParseScope(v string) (Scope, error) {
	name, team, _ := strings.Cut(strings.TrimSpace(v), ":")
	switch strings.ToLower(name) {
	case "paper", "papers":
		return PaperScope(), nil
	case "reference", "references":
		if team == "" {
			return Scope{}, ErrMissingScopeParameter
		}
		id, err := strconv.ParseUint(team, 10, 0)
		if err != nil {
			return Scope{}, fmt.Errorf("invalid team id %q: %w", team, err)
		}
		return ReferenceScope(uint(id)).Normalize()
	default:
		return Scope{}, fmt.Errorf("unknown category scope %q", v)
	}
}
