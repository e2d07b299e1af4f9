// Command seed fills a development database with demo comment threads.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/bootstrap"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/config"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/middleware"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/seed"
)

func main() {
	def := seed.DefaultOptions()
	numUsers := flag.Int("users", def.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", def.NumPosts, "Number of posts to create threads on")
	maxComments := flag.Int("comments", def.MaxComments, "Maximum top-level comments per post")
	shouldClean := flag.Bool("clean", true, "Clean seeded content before seeding")
	fast := flag.Bool("fast", false, "Hash passwords with the minimum bcrypt cost")
	randomSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true, SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	opts := def
	opts.NumUsers = *numUsers
	opts.NumPosts = *numPosts
	opts.MaxComments = *maxComments
	opts.ShouldClean = *shouldClean
	opts.SkipBcrypt = *fast
	opts.RandomSeed = *randomSeed
	opts.Logger = middleware.Logger

	res, err := seed.Seed(ctx, db, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d comments, %d reactions, %d reports",
		res.Users, res.Posts, res.Comments, res.Reactions, res.Reports)
	log.Printf("All seeded users have the password: %s", seed.DemoPassword)
}
