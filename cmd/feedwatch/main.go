// Command feedwatch signs in, keeps a live copy of the feed and periodically
// prints what changed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anonto42/minisocial/internal/feed"
	"github.com/anonto42/minisocial/pkg/client"
	"github.com/anonto42/minisocial/pkg/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	email := flag.String("email", "", "sign in with this email instead of MINISOCIAL_TOKEN")
	password := flag.String("password", os.Getenv("MINISOCIAL_PASSWORD"), "password for -email")
	every := flag.Duration("every", 15*time.Second, "how often to print a summary")
	query := flag.String("q", "", "only print posts matching this text")
	tag := flag.String("tag", "", "only print posts with this hashtag")
	flag.Parse()

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetupLogging(cfg.LogLevel, false)

	api, err := client.New(client.Options{
		BaseURL:  cfg.APIURL,
		Token:    cfg.Token,
		Timeout:  cfg.RemoteTimeout,
		RetryMax: cfg.RetryMax,
	})
	if err != nil {
		log.Fatalf("Invalid client configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *email != "" {
		if _, err := api.SignIn(ctx, *email, *password); err != nil {
			log.Fatalf("Sign-in failed: %v", err)
		}
	}
	me, err := api.Me(ctx)
	if err != nil {
		log.Fatalf("Could not load the signed-in profile: %v", err)
	}
	log.WithField("user", me.Username).Info("signed in")

	store := feed.NewStore(api, me.UserCompact, feed.Options{
		Timeout: cfg.RemoteTimeout,
		OnAuthRequired: func(err error) {
			log.WithError(err).Error("session rejected, sign in again")
			stop()
		},
	})
	defer store.Close()

	if err := store.Load(ctx); err != nil {
		log.Fatalf("Initial load failed: %v", err)
	}

	go func() {
		if err := store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("realtime watch stopped")
		}
	}()

	printSummary(store, *query, *tag)
	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			printSummary(store, *query, *tag)
		}
	}
}

func printSummary(store *feed.Store, query, tag string) {
	now := time.Now()
	var b strings.Builder

	posts := store.Filtered(query, tag)
	fmt.Fprintf(&b, "\n== %d posts, %d unread notifications ==\n", len(posts), store.UnreadCount())
	for i, p := range posts {
		if i == 10 {
			fmt.Fprintf(&b, "  ... %d more\n", len(posts)-i)
			break
		}
		marker := " "
		if p.Liked {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s @%s (%s): %s  [%d likes, %d comments]\n",
			marker, p.Author.Username, feed.TimeAgo(p.CreatedAt, now), p.Content, p.LikesCount, p.CommentsCount)
	}

	if tags := store.TrendingTags(); len(tags) > 0 {
		b.WriteString("trending:")
		for _, t := range tags {
			fmt.Fprintf(&b, " #%s(%d)", t.Tag, t.Count)
		}
		b.WriteString("\n")
	}

	for _, n := range store.Notifications() {
		if n.IsRead {
			continue
		}
		fmt.Fprintf(&b, "! @%s %s (%s)\n", n.Actor.Username, n.Type, feed.TimeAgo(n.CreatedAt, now))
	}
	fmt.Print(b.String())
}
