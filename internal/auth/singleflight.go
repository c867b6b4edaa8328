package auth

import (
	"context"

	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// SingleFlight wraps a Store so that concurrent refreshes share one call to
// the underlying fetcher. Callers that give up keep the shared call running
// for the others.
type SingleFlight struct {
	Store
	group singleflight.Group
}

func NewSingleFlight(s Store) *SingleFlight {
	return &SingleFlight{Store: s}
}

func (s *SingleFlight) FetchNewCredentials(ctx context.Context) (*Credentials, error) {
	ch := s.group.DoChan(refreshKey, func() (any, error) {
		return s.Store.FetchNewCredentials(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		creds, _ := res.Val.(*Credentials)
		if creds == nil {
			return nil, nil
		}
		cp := *creds
		return &cp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
