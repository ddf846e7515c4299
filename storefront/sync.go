package storefront

import (
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-storefront/events"
	"github.com/jrsteele09/go-storefront/internal/metrics"
	"github.com/jrsteele09/go-storefront/session"
	"github.com/jrsteele09/go-storefront/storage"
)

// onStorageChange reacts to another process touching the shared access token. A removed
// token ends the local session; a new one is picked up as a login.
func (a *App) onStorageChange(key string) {
	if key != session.KeyAccessToken {
		return
	}

	present := storage.Has(a.Storage, session.KeyAccessToken)
	authenticated := a.Session.IsAuthenticated()
	switch {
	case !present && authenticated:
		log.Info().Msg("session ended in another process")
		metrics.SessionInvalidations.WithLabelValues(metrics.ReasonRemote).Inc()
		a.Bus.Emit(events.SessionInvalidated)
	case present && !authenticated:
		a.Session.Initialize()
		if u := a.Session.User(); u != nil {
			log.Info().Str("user", u.ID).Msg("session started in another process")
			a.Bus.Emit(events.CartShouldRefresh)
		}
	}
}
