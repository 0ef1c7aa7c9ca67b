package feed

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/minisocial/internal/models"
	log "github.com/sirupsen/logrus"
)

// watchedTables are the change streams that affect what the store renders.
var watchedTables = []string{
	models.TablePosts,
	models.TableLikes,
	models.TableComments,
	models.TableNotifications,
}

// HandleEvent reacts to one realtime change by refetching what it affects.
// Refetches triggered while one is running are coalesced.
func (s *Store) HandleEvent(evt models.ChangeEvent) {
	switch evt.Table {
	case models.TablePosts, models.TableLikes:
		s.refreshAsync("feed", s.RefreshFeed)
	case models.TableComments:
		s.refreshAsync("feed", s.RefreshFeed)
		var rec struct {
			PostID string `json:"post_id"`
		}
		if err := unmarshalRecord(evt, &rec); err == nil && rec.PostID != "" && s.commentsLoaded(rec.PostID) {
			s.refreshAsync("comments", func() error { return s.RefreshComments(rec.PostID) })
		}
	case models.TableNotifications:
		if evt.RecipientID == 0 || evt.RecipientID == s.me.ID {
			s.refreshAsync("notifications", s.RefreshNotifications)
		}
	}
}

func (s *Store) commentsLoaded(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.comments[postID]
	return ok
}

// Watch keeps a realtime subscription open until ctx ends or the store is
// closed, reconnecting with exponential backoff. After every reconnect the
// feed and notifications are refetched to cover missed events.
func (s *Store) Watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	backoff := s.opts.ReconnectMin
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			s.refreshAsync("feed", s.RefreshFeed)
			s.refreshAsync("notifications", s.RefreshNotifications)
		}

		started := time.Now()
		err := s.remote.Subscribe(ctx, watchedTables, s.HandleEvent)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, models.ErrUnauthorized) {
			s.authCheck(err)
			return err
		}
		// a connection that stayed up a while starts the backoff over
		if time.Since(started) > s.opts.ReconnectMax {
			backoff = s.opts.ReconnectMin
		}
		log.WithError(err).WithField("retry_in", backoff).Warn("realtime subscription dropped")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > s.opts.ReconnectMax {
			backoff = s.opts.ReconnectMax
		}
	}
}
