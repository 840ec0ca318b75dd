package role

import (
	"context"
	"strings"
	"sync"

	"github.com/go-otp-gate/internal/domain"
)

// Resolver maps an email address to a role. Resolve is pure with respect to
// the resolver's current state and is recomputed on every call.
type Resolver interface {
	Resolve(email string) domain.Role
}

// StaticResolver resolves roles from fixed allowlists.
type StaticResolver struct {
	admins     map[string]struct{}
	moderators map[string]struct{}
}

func NewStaticResolver(admins, moderators []string) *StaticResolver {
	return &StaticResolver{admins: toSet(admins), moderators: toSet(moderators)}
}

func (r *StaticResolver) Resolve(email string) domain.Role {
	e := normalize(email)
	if e == "" {
		return domain.RoleViewer
	}
	if _, ok := r.admins[e]; ok {
		return domain.RoleAdmin
	}
	if _, ok := r.moderators[e]; ok {
		return domain.RoleModerator
	}
	return domain.RoleViewer
}

type assignmentLister interface {
	Scan(ctx context.Context) ([]domain.RoleAssignment, error)
}

// TableResolver resolves from a snapshot of the role_assignments table and
// falls back to the static allowlists for emails without an assignment.
type TableResolver struct {
	store    assignmentLister
	fallback Resolver

	mu       sync.RWMutex
	snapshot map[string]domain.Role
}

func NewTableResolver(store assignmentLister, fallback Resolver) *TableResolver {
	return &TableResolver{store: store, fallback: fallback, snapshot: map[string]domain.Role{}}
}

// Refresh reloads the snapshot. On error the previous snapshot is kept.
func (r *TableResolver) Refresh(ctx context.Context) error {
	rows, err := r.store.Scan(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]domain.Role, len(rows))
	for _, a := range rows {
		if _, ok := domain.ParseRole(string(a.Role)); ok {
			next[normalize(a.Email)] = a.Role
		}
	}
	r.mu.Lock()
	r.snapshot = next
	r.mu.Unlock()
	return nil
}

func (r *TableResolver) Resolve(email string) domain.Role {
	r.mu.RLock()
	role, ok := r.snapshot[normalize(email)]
	r.mu.RUnlock()
	if ok {
		return role
	}
	return r.fallback.Resolve(email)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = normalize(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}
