package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/darasa-dev/portal/core"
)

// TokenDecoder turns a persisted credential back into the user it was
// issued to, or fails when the credential is corrupt or expired.
type TokenDecoder func(token string) (User, error)

// Gate rehydrates the Store from durable storage exactly once, before the
// first route evaluation. Request handling blocks on Ready until it is done.
//
// Any rehydration failure leaves the session unauthenticated: a stale or
// corrupt token is as good as no token. Preferences rehydrate on their own,
// independently of the credential's fate.
type Gate struct {
	store  *Store
	decode TokenDecoder
	log    core.Logger

	once sync.Once
	done chan struct{}
}

func NewGate(store *Store, decode TokenDecoder, logger core.Logger) *Gate {
	return &Gate{
		store:  store,
		decode: decode,
		log:    logger,
		done:   make(chan struct{}),
	}
}

// Rehydrate restores the session from the local store. It is safe to call
// more than once; only the first call does any work.
func (g *Gate) Rehydrate() {
	g.once.Do(func() {
		defer close(g.done)

		if prefs, err := g.store.persys.LoadPreferences(); err != nil {
			g.log.Warn("rehydration: loading preferences", errors.Wrap(err, "loading preferences"))
		} else {
			g.store.setPreferences(prefs)
		}

		token, err := g.store.persys.LoadToken()
		if err != nil {
			g.log.Warn("rehydration: loading token", errors.Wrap(err, "loading token"))
			return
		}
		if token == "" {
			return // nothing persisted; stay unauthenticated
		}

		usr, err := g.decode(token)
		if err != nil {
			g.log.Info("rehydration: discarding unusable token", err)
			if derr := g.store.persys.DeleteToken(); derr != nil {
				g.log.Warn("rehydration: deleting unusable token", errors.Wrap(derr, "deleting token"))
			}
			return
		}

		if err = g.store.restore(usr, token); err != nil {
			g.log.Warn("rehydration: restoring credentials", err)
		}
	})
}

// Ready is closed once rehydration has completed or failed.
func (g *Gate) Ready() <-chan struct{} {
	return g.done
}

// Wait blocks until rehydration finishes or ctx is cancelled.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for session rehydration")
	}
}
