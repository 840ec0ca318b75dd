package http

import (
	"net/netip"
	"time"

	"github.com/go-otp-gate/internal/application/admin"
	"github.com/go-otp-gate/internal/application/auth"
	"github.com/go-otp-gate/internal/application/doctor"
	"github.com/go-otp-gate/internal/application/location"
	"github.com/go-otp-gate/internal/application/presence"
	"github.com/go-otp-gate/internal/application/profile"
	"github.com/go-otp-gate/internal/application/role"
	"github.com/go-otp-gate/internal/application/session"
	"github.com/go-otp-gate/internal/application/userinfo"
	"github.com/go-otp-gate/internal/transport/http/middleware"
)

// Deps holds the application services the router mounts. main builds them
// from the infrastructure adapters.
type Deps struct {
	Auth     auth.Service
	Location location.Service
	Profiles profile.Service
	Sessions session.Service
	Presence presence.Service
	UserInfo userinfo.Service
	Admin    admin.Service
	Roles    role.Service
	Doctor   doctor.Service
	Tokens   TokenProvider
	Resolver middleware.RoleResolver
	Accounts middleware.AccountLookup
	// Proxies are the peers whose forwarding headers name the client.
	Proxies  []netip.Prefix
}

// TokenProvider verifies session tokens and reports their lifetime, which
// becomes the session cookie's Max-Age.
type TokenProvider interface {
	middleware.TokenVerifier
	Expiry() time.Duration
}
