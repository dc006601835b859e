// Package services contains server-side business logic. UserService stores
// registrations and serves verifier lookups to handshake sessions.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpauth/internal/common"
	"github.com/dmitrijs2005/srpauth/internal/dbx"
	"github.com/dmitrijs2005/srpauth/internal/handshake"
	"github.com/dmitrijs2005/srpauth/internal/server/models"
	"github.com/dmitrijs2005/srpauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/srpauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/srpauth/internal/srp"
)

// maxIdentityLength bounds usernames accepted at registration.
const maxIdentityLength = 256

// UserService provides the user-store operations:
// - Register: persist a client-computed salt and verifier
// - Lookup: fetch credentials for a handshake session
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	params      *srp.Params
}

var _ handshake.UserStore = (*UserService)(nil)

// NewUserService constructs a UserService. db may be nil when the manager is
// not backed by SQL; writes then run without a transaction.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, params *srp.Params) *UserService {
	return &UserService{db: db, repomanager: m, params: params}
}

// Register creates a new user. verifierHex must be a hex integer in [1, N);
// it is stored in canonical lowercase form.
func (s *UserService) Register(ctx context.Context, username, salt, verifierHex string) (*models.User, error) {
	if username == "" || len(username) > maxIdentityLength {
		return nil, fmt.Errorf("%w: identity must be 1..%d bytes", common.ErrorValidation, maxIdentityLength)
	}
	if salt == "" {
		return nil, fmt.Errorf("%w: empty salt", common.ErrorValidation)
	}
	v, err := srp.ParseInt(verifierHex)
	if err != nil {
		return nil, fmt.Errorf("%w: verifier: %v", common.ErrorValidation, err)
	}
	if v.Sign() == 0 || v.Cmp(s.params.N) >= 0 {
		return nil, fmt.Errorf("%w: verifier out of range", common.ErrorValidation)
	}

	var created *models.User
	err = s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		_, err := repo.GetUserByLogin(ctx, username)
		if err == nil {
			return common.ErrorAlreadyExists
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		created, err = repo.Create(ctx, &models.User{
			UserName: username,
			Salt:     salt,
			Verifier: srp.FormatInt(v),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

// Lookup returns the stored salt and verifier for identity, or
// common.ErrorNotFound.
func (s *UserService) Lookup(ctx context.Context, identity string) (*handshake.Credentials, error) {
	user, err := s.repomanager.Users(dbx.Handle(s.db)).GetUserByLogin(ctx, identity)
	if err != nil {
		return nil, err
	}

	v, err := srp.ParseInt(user.Verifier)
	if err != nil {
		return nil, fmt.Errorf("%w: stored verifier for %q: %v", common.ErrorInternal, identity, err)
	}
	return &handshake.Credentials{Salt: user.Salt, Verifier: v}, nil
}

func (s *UserService) inTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.repomanager.Users(tx))
	})
}
