// Package seed fills a database with demo accounts and content. It is meant for
// development and tests only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// Options sizes a seeding run.
type Options struct {
	Users           int
	Tags            int
	BlogsPerUser    int
	PostsPerBlog    int
	CommentsPerBlog int
	FollowsPerUser  int
	// Seed makes the generated content reproducible when non-zero.
	Seed int64
	// FastHash hashes passwords at bcrypt.MinCost.
	FastHash bool
}

// DefaultOptions is a small but connected data set.
func DefaultOptions() Options {
	return Options{
		Users:           20,
		Tags:            8,
		BlogsPerUser:    2,
		PostsPerBlog:    3,
		CommentsPerBlog: 2,
		FollowsPerUser:  4,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Tags     int
	Blogs    int
	Posts    int
	Comments int
	Replies  int
	Follows  int
}

// Seeder writes generated rows through gorm.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
}

// NewSeeder returns a seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{db: db, opts: opts, faker: gofakeit.New(seed)}
}

// ClearAll removes every row the application owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []string{
		"replies", "comments", "posts", "blog_reactions", "blog_tags",
		"profile_saved_blogs", "profile_tags", "follows", "blogs", "tags",
		"otp_tokens", "profiles", "users",
	}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "seed: database cleared")
	return nil
}

// Run creates users, tags, follows, blogs with posts and comment threads.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{}
	db := s.db.WithContext(ctx)

	users, err := s.createUsers(db)
	if err != nil {
		return nil, err
	}
	sum.Users = len(users)

	tags, err := s.createTags(db)
	if err != nil {
		return nil, err
	}
	sum.Tags = len(tags)

	if sum.Follows, err = s.createFollows(db, users); err != nil {
		return nil, err
	}

	for _, owner := range users {
		for i := 0; i < s.opts.BlogsPerUser; i++ {
			blog, err := s.createBlog(db, owner, tags)
			if err != nil {
				return nil, err
			}
			sum.Blogs++

			posts, err := s.createPosts(db, blog)
			if err != nil {
				return nil, err
			}
			sum.Posts += posts

			if !blog.IsPublished() {
				continue
			}
			comments, replies, err := s.createThreads(db, blog, users)
			if err != nil {
				return nil, err
			}
			sum.Comments += comments
			sum.Replies += replies
		}
	}

	middleware.Logger.InfoContext(ctx, "seed: run complete",
		"users", sum.Users, "blogs", sum.Blogs, "posts", sum.Posts, "comments", sum.Comments)
	return sum, nil
}

func (s *Seeder) createUsers(db *gorm.DB) ([]*models.User, error) {
	cost := bcrypt.DefaultCost
	if s.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		person := s.faker.Person()
		username := strings.ToLower(fmt.Sprintf("%s%s%d", person.FirstName[:1], person.LastName, i))
		user := &models.User{
			Email:           username + "@" + s.faker.DomainName(),
			Username:        username,
			Name:            person.FirstName + " " + person.LastName,
			Password:        string(hash),
			IsActive:        true,
			IsEmailVerified: true,
			HideEmail:       s.faker.Number(1, 4) == 1,
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
				return err
			}
			return tx.Create(&models.Profile{UserID: user.ID, Bio: s.faker.Sentence(10)}).Error
		}); err != nil {
			return nil, fmt.Errorf("create user %s: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createTags(db *gorm.DB) ([]models.Tag, error) {
	seen := make(map[string]bool)
	tags := make([]models.Tag, 0, s.opts.Tags)
	for attempts := 0; len(tags) < s.opts.Tags && attempts < s.opts.Tags*20; attempts++ {
		name := strings.ToLower(s.faker.Hobby())
		if seen[name] || len(name) > 64 {
			continue
		}
		seen[name] = true
		tags = append(tags, models.Tag{Name: name})
	}
	if len(tags) == 0 {
		return tags, nil
	}
	if err := db.Create(&tags).Error; err != nil {
		return nil, fmt.Errorf("create tags: %w", err)
	}
	return tags, nil
}

func (s *Seeder) createFollows(db *gorm.DB, users []*models.User) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	var edges []models.Follow
	for i, follower := range users {
		n := min(s.opts.FollowsPerUser, len(users)-1)
		for k := 1; k <= n; k++ {
			followee := users[(i+k)%len(users)]
			edges = append(edges, models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID})
		}
	}
	if len(edges) == 0 {
		return 0, nil
	}
	if err := db.Create(&edges).Error; err != nil {
		return 0, fmt.Errorf("create follows: %w", err)
	}
	return len(edges), nil
}

func (s *Seeder) createBlog(db *gorm.DB, owner *models.User, tags []models.Tag) (*models.Blog, error) {
	blog := &models.Blog{
		UserID:      owner.ID,
		Heading:     strings.TrimSuffix(s.faker.Sentence(5), "."),
		Description: s.faker.Paragraph(1, 2, 12, " "),
	}
	// Roughly three in four blogs are published.
	if s.faker.Number(1, 4) != 1 {
		published := time.Now().Add(-time.Duration(s.faker.Number(1, 90*24)) * time.Hour)
		blog.Status = models.BlogStatusPublished
		blog.DatePublished = &published
	}
	if err := db.Omit(clause.Associations).Create(blog).Error; err != nil {
		return nil, fmt.Errorf("create blog: %w", err)
	}

	if len(tags) > 0 {
		links := make([]models.BlogTag, 0, 2)
		first := s.faker.Number(0, len(tags)-1)
		links = append(links, models.BlogTag{BlogID: blog.ID, TagID: tags[first].ID})
		if second := (first + 1) % len(tags); second != first {
			links = append(links, models.BlogTag{BlogID: blog.ID, TagID: tags[second].ID})
		}
		if err := db.Create(&links).Error; err != nil {
			return nil, fmt.Errorf("tag blog: %w", err)
		}
	}
	return blog, nil
}

func (s *Seeder) createPosts(db *gorm.DB, blog *models.Blog) (int, error) {
	if s.opts.PostsPerBlog <= 0 {
		return 0, nil
	}
	posts := make([]models.Post, 0, s.opts.PostsPerBlog)
	for i := 0; i < s.opts.PostsPerBlog; i++ {
		posts = append(posts, models.Post{
			BlogID:  blog.ID,
			Heading: strings.TrimSuffix(s.faker.Sentence(4), "."),
			Content: s.faker.Paragraph(2, 4, 14, "\n\n"),
		})
	}
	if err := db.Create(&posts).Error; err != nil {
		return 0, fmt.Errorf("create posts: %w", err)
	}
	return len(posts), nil
}

// createThreads adds comments from other users, each answered once by the blog owner.
func (s *Seeder) createThreads(db *gorm.DB, blog *models.Blog, users []*models.User) (int, int, error) {
	var comments, replies int
	for i := 0; i < s.opts.CommentsPerBlog; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		comment := &models.Comment{BlogID: blog.ID, UserID: author.ID, Body: s.faker.Sentence(12)}
		if err := db.Omit(clause.Associations).Create(comment).Error; err != nil {
			return 0, 0, fmt.Errorf("create comment: %w", err)
		}
		comments++

		if author.ID == blog.UserID {
			continue
		}
		reply := &models.Reply{CommentID: comment.ID, UserID: blog.UserID, Body: s.faker.Sentence(8)}
		if err := db.Omit(clause.Associations).Create(reply).Error; err != nil {
			return 0, 0, fmt.Errorf("create reply: %w", err)
		}
		replies++
	}
	return comments, replies, nil
}
