package service

import (
	"context"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// RoutingResolver finds the authority responsible for an issue.
type RoutingResolver struct {
	users repository.UserRepository
}

// NewRoutingResolver constructs the resolver.
func NewRoutingResolver(users repository.UserRepository) *RoutingResolver {
	return &RoutingResolver{users: users}
}

// ResolveInitial returns the triage authority for a new issue: the principal, else an admin.
// Category is deliberately ignored; every issue is triaged centrally first. Nil means nobody.
func (r *RoutingResolver) ResolveInitial(ctx context.Context, _ domain.IssueCategory) (*domain.User, error) {
	for _, role := range []domain.Role{domain.RolePrincipal, domain.RoleAdmin} {
		user, err := r.findFirst(ctx, role, "")
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}
	return nil, nil
}

// EscalationRole maps (category, level) to the role that should own the issue next.
func EscalationRole(category domain.IssueCategory, level int) domain.Role {
	switch {
	case level <= 1:
		switch category {
		case domain.CategoryAcademic:
			return domain.RoleHOD
		case domain.CategoryHostel:
			return domain.RoleWarden
		default:
			return domain.RoleAdmin
		}
	case level == 2:
		if category == domain.CategoryAcademic {
			return domain.RoleDean
		}
		return domain.RoleAdmin
	default:
		return domain.RolePrincipal
	}
}

// ResolveEscalationTarget finds the authority for the given escalation level. Non-principal
// targets fall back to any admin. Returns a routing failure when nobody qualifies.
func (r *RoutingResolver) ResolveEscalationTarget(ctx context.Context, category domain.IssueCategory, department string, level int) (*domain.User, error) {
	if level > domain.MaxEscalationLevel {
		level = domain.MaxEscalationLevel
	}
	role := EscalationRole(category, level)

	user, err := r.findFirst(ctx, role, department)
	if err != nil {
		return nil, err
	}
	if user == nil && role != domain.RolePrincipal {
		user, err = r.findFirst(ctx, domain.RoleAdmin, "")
		if err != nil {
			return nil, err
		}
	}
	if user == nil {
		return nil, apperrors.NewRoutingFailure(map[string]any{
			"role":       role,
			"category":   category,
			"department": department,
			"level":      level,
		})
	}
	return user, nil
}

// ForwardRoles returns the roles the caller may forward to.
func ForwardRoles(caller domain.Role) []domain.Role {
	if caller == domain.RoleFaculty {
		return []domain.Role{domain.RoleWarden, domain.RoleTransportIncharge}
	}
	if !caller.IsAuthority() {
		return nil
	}
	return append([]domain.Role(nil), domain.AuthorityRoles...)
}

// ForwardCandidates lists authorities the caller may hand an issue to, excluding the caller.
func (r *RoutingResolver) ForwardCandidates(ctx context.Context, caller *domain.User) ([]domain.User, error) {
	roles := ForwardRoles(caller.Role)
	if len(roles) == 0 {
		return []domain.User{}, nil
	}
	callerID := caller.ID
	return r.users.List(ctx, repository.UserFilter{Roles: roles, ExcludeID: &callerID})
}

func (r *RoutingResolver) findFirst(ctx context.Context, role domain.Role, department string) (*domain.User, error) {
	filter := repository.UserFilter{Roles: []domain.Role{role}, Limit: 1}
	if role.DepartmentScoped() && department != "" {
		dept := department
		filter.Department = &dept
	}
	users, err := r.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
