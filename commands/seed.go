package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"pulse/database"
	"pulse/models"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// seedPassword is shared by every seeded account.
const seedPassword = "pulse-demo-password"

var (
	seedUsers    int
	seedPosts    int
	seedLikes    int
	seedComments int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with demo users, posts, likes and comments",
	Long: `Fill the database with demo data for local development.

Examples:
  pulse seed                      # 10 users, 50 posts
  pulse seed --users 100 --posts 2000

Seeded accounts are demo<N>@pulse.local, all sharing one password.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateDatabase(); err != nil {
			return err
		}
		if seedUsers < 1 {
			return errors.New("--users must be at least 1")
		}
		if seedPosts < 0 || seedLikes < 0 || seedComments < 0 {
			return errors.New("--posts, --likes and --comments must not be negative")
		}

		ctx := cmd.Context()
		store, err := database.Connect(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		start := time.Now()
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		s := seeder{store: store, log: log, r: r}
		if err := s.run(ctx); err != nil {
			return err
		}
		log.WithField("took", time.Since(start).Truncate(time.Millisecond)).Info("seed complete")
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 10, "number of users")
	seedCmd.Flags().IntVar(&seedPosts, "posts", 50, "number of posts")
	seedCmd.Flags().IntVar(&seedLikes, "likes", 5, "maximum likes per post")
	seedCmd.Flags().IntVar(&seedComments, "comments", 3, "maximum comments per post")
	rootCmd.AddCommand(seedCmd)
}

var (
	seedBios = []string{
		"Coffee first, code second.",
		"Trail runner and weekend baker.",
		"Photographing the city one street at a time.",
		"",
	}
	seedDescriptions = []string{
		"Sunrise over the harbour this morning",
		"Finally finished the bookshelf project",
		"Trying a new ramen place downtown",
		"Rainy day, good book",
		"First 10k of the year done",
		"Throwback to last summer",
	}
	seedReplies = []string{
		"Love this!",
		"Where is this?",
		"So good",
		"Congrats!",
		"Need to try this",
	}
)

type seeder struct {
	store database.Store
	log   logrus.FieldLogger
	r     *rand.Rand
}

func (s seeder) run(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	password := string(hash)

	users := make([]uint, 0, seedUsers)
	for i := 1; i <= seedUsers; i++ {
		u := &models.User{
			Email:        fmt.Sprintf("demo%d@pulse.local", i),
			Username:     fmt.Sprintf("demo%d", i),
			Name:         fmt.Sprintf("Demo User %d", i),
			Role:         models.RoleUser,
			AuthProvider: models.ProviderEmail,
			PasswordHash: &password,
			Profile:      &models.UserProfile{Bio: seedBios[s.r.Intn(len(seedBios))]},
		}
		err := s.store.CreateUser(ctx, u)
		if errors.Is(err, database.ErrConflict) {
			existing, lookupErr := s.store.UserByEmail(ctx, u.Email)
			if lookupErr != nil {
				return lookupErr
			}
			users = append(users, existing.ID)
			continue
		}
		if err != nil {
			return fmt.Errorf("create user %s: %w", u.Username, err)
		}
		users = append(users, u.ID)
	}
	s.log.WithField("users", len(users)).Info("users ready")

	var likes, comments int
	for i := 0; i < seedPosts; i++ {
		p := &models.Post{
			UserID:      users[s.r.Intn(len(users))],
			Description: seedDescriptions[s.r.Intn(len(seedDescriptions))],
		}
		if err := s.store.CreatePost(ctx, p); err != nil {
			return fmt.Errorf("create post: %w", err)
		}

		for j := s.r.Intn(seedLikes + 1); j > 0; j-- {
			created, err := s.store.AddLike(ctx, p.ID, users[s.r.Intn(len(users))])
			if err != nil {
				return fmt.Errorf("add like: %w", err)
			}
			if created {
				likes++
			}
		}
		for j := s.r.Intn(seedComments + 1); j > 0; j-- {
			c := &models.Comment{
				PostID:  p.ID,
				UserID:  users[s.r.Intn(len(users))],
				Content: seedReplies[s.r.Intn(len(seedReplies))],
			}
			if err := s.store.AddComment(ctx, c); err != nil {
				return fmt.Errorf("add comment: %w", err)
			}
			comments++
		}
	}

	s.log.WithFields(logrus.Fields{
		"posts":    seedPosts,
		"likes":    likes,
		"comments": comments,
	}).Info("posts ready")
	return nil
}
