package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/srpauth/internal/dbx"
	"github.com/dmitrijs2005/srpauth/internal/server/repositories/users"
)

// MemoryRepositoryManager hands out a single shared in-memory repository
// regardless of the handle it is given.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

// RunMigrations is a no-op; there is no schema.
func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}
