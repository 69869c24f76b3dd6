package sqlite

import "github.com/aussiebroadwan/tokengate/internal/auth/store"

type txStore struct {
	q *queries
}

func (t *txStore) Users() store.Users { return &usersRepo{q: t.q} }
