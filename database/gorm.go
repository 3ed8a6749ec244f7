package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pulse/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore is the relational Store, backed by PostgreSQL in production and
// SQLite for local runs and tests.
type GormStore struct {
	db *gorm.DB
}

func OpenPostgres(dsn string, log *logrus.Logger) (*GormStore, error) {
	return openGorm(postgres.Open(dsn), log)
}

// OpenSQLite opens a SQLite database file (or a file:...?mode=memory DSN).
// SQLite allows one writer, so the pool is limited to one connection.
func OpenSQLite(dsn string, log *logrus.Logger) (*GormStore, error) {
	store, err := openGorm(sqlite.Open(dsn), log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := store.db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return store, nil
}

func openGorm(dialector gorm.Dialector, log *logrus.Logger) (*GormStore, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	}
	if log != nil {
		cfg.Logger = gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.PushSubscription{},
	)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ===== USERS =====

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	profile := user.Profile
	if profile == nil {
		profile = &models.UserProfile{}
	}
	user.Profile = nil

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).
			Where("email = ? OR username = ?", user.Email, user.Username).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		return translate(err, EntityUser)
	}
	user.Profile = profile
	return nil
}

func (s *GormStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, translate(err, EntityUser)
	}
	return &user, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, EntityUser)
	}
	return &user, nil
}

func (s *GormStore) UserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		return nil, translate(err, EntityUser)
	}
	return &user, nil
}

func (s *GormStore) LinkGoogleAccount(ctx context.Context, userID uint, googleID string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("google_id", googleID)
	if res.Error != nil {
		return translate(res.Error, EntityUser)
	}
	if res.RowsAffected == 0 {
		return notFound(EntityUser)
	}
	return nil
}

// ===== PROFILES =====

func (s *GormStore) ProfileByUserID(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, translate(err, EntityProfile)
	}
	return &profile, nil
}

func (s *GormStore) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, profile.UserID).Error; err != nil {
			return translate(err, EntityUser)
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"profile_picture", "bio", "updated_at"}),
		}).Omit("User").Create(profile).Error
	})
	if err != nil {
		return translate(err, EntityProfile)
	}
	return nil
}

// ===== POSTS =====

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, post.UserID).Error; err != nil {
			return translate(err, EntityUser)
		}
		return tx.Omit(clause.Associations).Create(post).Error
	})
	return translate(err, EntityUser)
}

func (s *GormStore) withPostRelations(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("User").
		Preload("User.Profile").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("comments.created_at ASC, comments.id ASC") }).
		Preload("Comments.User").
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("likes.id ASC") }).
		Preload("Likes.User")
}

func (s *GormStore) PostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.withPostRelations(s.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		return nil, translate(err, EntityPost)
	}
	return &post, nil
}

func (s *GormStore) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.Post{})
	if q.AuthorID != 0 {
		base = base.Where("user_id = ?", q.AuthorID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	posts := []models.Post{}
	err := s.withPostRelations(base.Session(&gorm.Session{})).
		Order("posts.created_at DESC, posts.id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return posts, total, nil
}

func (s *GormStore) UpdatePost(ctx context.Context, id uint, upd PostUpdate) (*models.Post, error) {
	fields := map[string]any{
		"description": upd.Description,
		"updated_at":  time.Now(),
	}
	if upd.ImageURL != nil {
		fields["image_url"] = *upd.ImageURL
	}

	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("update post %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound(EntityPost)
	}
	return s.PostByID(ctx, id)
}

func (s *GormStore) DeletePost(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete likes of post %d: %w", id, err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments of post %d: %w", id, err)
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete post %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound(EntityPost)
		}
		return nil
	})
}

// ===== LIKES & COMMENTS =====

func (s *GormStore) AddLike(ctx context.Context, postID, userID uint) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, userID).Error; err != nil {
			return translate(err, EntityUser)
		}
		if err := tx.Select("id").First(&models.Post{}, postID).Error; err != nil {
			return translate(err, EntityPost)
		}

		var existing int64
		if err := tx.Model(&models.Like{}).
			Where("post_id = ? AND user_id = ?", postID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		if err := tx.Omit(clause.Associations).Create(&models.Like{PostID: postID, UserID: userID}).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent request inserted the same like first.
		return false, nil
	}
	if err != nil {
		return false, translate(err, EntityPost)
	}
	return created, nil
}

func (s *GormStore) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

func (s *GormStore) AddComment(ctx context.Context, comment *models.Comment) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Post{}, comment.PostID).Error; err != nil {
			return translate(err, EntityPost)
		}
		var user models.User
		if err := tx.First(&user, comment.UserID).Error; err != nil {
			return translate(err, EntityUser)
		}
		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return err
		}
		comment.User = &user
		return nil
	})
	return translate(err, EntityPost)
}

// ===== PUSH SUBSCRIPTIONS =====

func (s *GormStore) SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	return translate(err, EntityUser)
}

func (s *GormStore) PushSubscriptions(ctx context.Context, userID uint) ([]models.PushSubscription, error) {
	subs := []models.PushSubscription{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&subs).Error
	return subs, err
}

func (s *GormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{}).Error
}

// translate maps driver errors onto the store's sentinels. entity names what
// a missing row or a dangling foreign key refers to.
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	switch {
	case errors.As(err, &nf), errors.Is(err, ErrConflict):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return notFound(entity)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return notFound(entity)
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}
