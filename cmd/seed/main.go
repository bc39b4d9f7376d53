// Command main runs the demo data seeder for Inkwell.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numTags := flag.Int("tags", defaults.Tags, "Number of tags to create")
	blogsPerUser := flag.Int("blogs", defaults.BlogsPerUser, "Blogs per user")
	postsPerBlog := flag.Int("posts", defaults.PostsPerBlog, "Posts per blog")
	commentsPerBlog := flag.Int("comments", defaults.CommentsPerBlog, "Comments per published blog")
	followsPerUser := flag.Int("follows", defaults.FollowsPerUser, "Accounts each user follows")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible content (0 = time based)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Hash the demo password at minimum bcrypt cost")
	flag.Parse()

	log.Println("Inkwell database seeder")
	log.Printf("Target: %d users, %d blogs each, clean=%v\n", *numUsers, *blogsPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{
		Users:           *numUsers,
		Tags:            *numTags,
		BlogsPerUser:    *blogsPerUser,
		PostsPerBlog:    *postsPerBlog,
		CommentsPerBlog: *commentsPerBlog,
		FollowsPerUser:  *followsPerUser,
		Seed:            *randomSeed,
		FastHash:        *fast,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d tags, %d blogs, %d posts, %d comments, %d replies, %d follows",
		sum.Users, sum.Tags, sum.Blogs, sum.Posts, sum.Comments, sum.Replies, sum.Follows)
	log.Printf("All seeded users have the password: %s", seed.DemoPassword)
}
