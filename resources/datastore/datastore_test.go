package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type LevelDBTestSuite struct {
	suite.Suite

	ctx   context.Context
	store *LevelDB
}

func TestLevelDBTestSuite(t *testing.T) {
	suite.Run(t, new(LevelDBTestSuite))
}

func (s *LevelDBTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New("")
	s.Require().NoError(s.store.Open(s.ctx))
}

func (s *LevelDBTestSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *LevelDBTestSuite) TestPutGetDelete() {
	s.Require().NoError(s.store.Put(s.ctx, "a", []byte("1")))

	v, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal([]byte("1"), v)

	s.Require().NoError(s.store.Delete(s.ctx, "a"))
	_, err = s.store.Get(s.ctx, "a")
	s.ErrorIs(err, ErrNotFound)
}

func (s *LevelDBTestSuite) TestKeys() {
	for _, k := range []string{"metrics/2", "metrics/1", "settings/dynamic"} {
		s.Require().NoError(s.store.Put(s.ctx, k, nil))
	}

	keys, err := s.store.Keys(s.ctx, "metrics/")
	s.Require().NoError(err)
	s.Equal([]string{"metrics/1", "metrics/2"}, keys)
}

func (s *LevelDBTestSuite) TestNotOpen() {
	store := New("")
	_, err := store.Get(s.ctx, "a")
	s.ErrorIs(err, ErrNotOpen)
	s.ErrorIs(store.Put(s.ctx, "a", nil), ErrNotOpen)
	s.NoError(store.Close())
}

func (s *LevelDBTestSuite) TestOpenFile() {
	store := New(s.T().TempDir())
	s.Require().NoError(store.Open(s.ctx))
	s.Require().NoError(store.Open(s.ctx)) // Opening twice is a no-op.
	s.Require().NoError(store.Put(s.ctx, "k", []byte("v")))
	s.Require().NoError(store.Close())

	s.Require().NoError(store.Open(s.ctx))
	v, err := store.Get(s.ctx, "k")
	s.NoError(err)
	s.Equal([]byte("v"), v)
	s.NoError(store.Close())
}
