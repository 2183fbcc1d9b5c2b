package http

import (
	"github.com/go-account-api/internal/application/notifier"
	"github.com/go-account-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-account-api/internal/infrastructure/jwt"
)

// Deps holds the infrastructure dependencies for the router. Services are
// wired inside NewRouter; the notifier arrives pre-built because its worker
// pool is started and stopped by main.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	RoleRepo         *dynamo.RoleRepo
	VerificationRepo *dynamo.VerificationRepo
	JWTProvider      *jwtinfra.Provider
	Notifier         notifier.Service
}
