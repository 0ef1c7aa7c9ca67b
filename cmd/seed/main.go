// Command seed fills the development databases with demo data.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/anonto42/minisocial/internal/seed"
	"github.com/anonto42/minisocial/pkg/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	users := flag.Int("users", 20, "number of users to create")
	posts := flag.Int("posts", 3, "posts per user")
	follows := flag.Int("follows", 5, "follows per user")
	likes := flag.Int("likes", 4, "likes per post")
	comments := flag.Int("comments", 2, "comments per post")
	seedValue := flag.Int64("seed", 0, "random seed, 0 for a random run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production environment")
	}
	config.SetupLogging(cfg.LogLevel, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	if err := repositories.AutoMigrate(db.Postgres); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}
	postRepo := repositories.NewMongoPostRepository(db.MongoDB)
	if err := postRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create post indexes: %v", err)
	}

	seeder := seed.NewSeeder(seed.Repositories{
		Users:         repositories.NewPostgresUserRepository(db.Postgres),
		Posts:         postRepo,
		Likes:         repositories.NewPostgresLikeRepository(db.Postgres),
		Comments:      repositories.NewPostgresCommentRepository(db.Postgres),
		Follows:       repositories.NewPostgresFollowRepository(db.Postgres),
		Notifications: repositories.NewPostgresNotificationRepository(db.Postgres),
	}, seed.Options{
		Users:           *users,
		PostsPerUser:    *posts,
		FollowsPerUser:  *follows,
		LikesPerPost:    *likes,
		CommentsPerPost: *comments,
		Seed:            *seedValue,
	})
	if _, err := seeder.Run(ctx); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Infof("All seeded users share the password %q", seed.DefaultPassword)
}
