package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dslvl "github.com/ipfs/go-ds-leveldb"
	"github.com/pyropy/bufwriter/core/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

const sessionsPrefix = "/sessions"

// Journal records upload sessions
type Journal interface {
	Put(ctx context.Context, session model.Session) error
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
	All(ctx context.Context) ([]*model.Session, error)
}

// Store is leveldb backed journal
type Store struct {
	Sessions *dslvl.Datastore
}

var _ Journal = (*Store)(nil)

func NewStore(dsPath string) (*Store, error) {
	p := fmt.Sprintf("%s/sessions", dsPath)
	store, err := dslvl.NewDatastore(p, nil)
	if err != nil {
		return nil, err
	}

	return &Store{
		Sessions: store,
	}, nil
}

func sessionKey(id uuid.UUID) ds.Key {
	return ds.NewKey(sessionsPrefix).ChildString(id.String())
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	b, err := s.Sessions.Get(ctx, sessionKey(id))
	if errors.Is(err, ds.ErrNotFound) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, err
	}

	var session model.Session
	err = json.Unmarshal(b, &session)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (s *Store) Put(ctx context.Context, session model.Session) error {
	b, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.Sessions.Put(ctx, sessionKey(session.ID), b)
}

// All returns every recorded session, oldest first
func (s *Store) All(ctx context.Context) ([]*model.Session, error) {
	q := dsq.Query{Prefix: sessionsPrefix}
	sessions := make([]*model.Session, 0)

	res, err := s.Sessions.Query(ctx, q)
	if err != nil {
		return sessions, err
	}
	defer res.Close()

	for {
		r, hasNext := res.NextSync()
		if !hasNext {
			break
		}

		if r.Error != nil {
			return sessions, r.Error
		}

		var session model.Session
		err = json.Unmarshal(r.Value, &session)
		if err != nil {
			return sessions, err
		}
		sessions = append(sessions, &session)
	}

	sortSessions(sessions)
	return sessions, nil
}

func (s *Store) Close() error {
	return s.Sessions.Close()
}

func sortSessions(sessions []*model.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
