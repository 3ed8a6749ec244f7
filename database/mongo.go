package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pulse/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collUsers    = "users"
	collProfiles = "profiles"
	collPosts    = "posts"
	collComments = "comments"
	collLikes    = "likes"
	collPushSubs = "push_subscriptions"
	collCounters = "counters"
)

// MongoStore keeps the same numeric ids as the relational store by issuing
// them from a counters collection.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (s *MongoStore) coll(name string) *mongo.Collection { return s.db.Collection(name) }

func (s *MongoStore) Migrate(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		collProfiles: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: unique},
		},
		collPosts: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		collComments: {
			{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		collLikes: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "postId", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "postId", Value: 1}}},
		},
		collPushSubs: {
			{Keys: bson.D{{Key: "endpoint", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
	}
	for name, specs := range indexes {
		if _, err := s.coll(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// nextID atomically increments and returns the sequence for name.
func (s *MongoStore) nextID(ctx context.Context, name string) (uint, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.coll(collCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return uint(counter.Seq), nil
}

func (s *MongoStore) findOne(ctx context.Context, coll string, filter any, out any, entity string) error {
	err := s.coll(coll).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound(entity)
	}
	return err
}

func (s *MongoStore) exists(ctx context.Context, coll string, id uint, entity string) error {
	n, err := s.coll(coll).CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(entity)
	}
	return nil
}

// ===== USERS =====

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	profile := user.Profile
	if profile == nil {
		profile = &models.UserProfile{}
	}

	n, err := s.coll(collUsers).CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"email": user.Email},
		bson.M{"username": user.Username},
	}})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}

	if user.ID, err = s.nextID(ctx, collUsers); err != nil {
		return err
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if _, err := s.coll(collUsers).InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	profile.UserID = user.ID
	if profile.ID, err = s.nextID(ctx, collProfiles); err != nil {
		return err
	}
	profile.CreatedAt, profile.UpdatedAt = now, now
	if _, err := s.coll(collProfiles).InsertOne(ctx, profile); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	user.Profile = profile
	return nil
}

func (s *MongoStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, collUsers, bson.M{"_id": id}, &user, EntityUser); err != nil {
		return nil, err
	}
	var profile models.UserProfile
	err := s.findOne(ctx, collProfiles, bson.M{"userId": id}, &profile, EntityProfile)
	switch {
	case err == nil:
		user.Profile = &profile
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, collUsers, bson.M{"email": email}, &user, EntityUser); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) UserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, collUsers, bson.M{"googleId": googleID}, &user, EntityUser); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) LinkGoogleAccount(ctx context.Context, userID uint, googleID string) error {
	res, err := s.coll(collUsers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"googleId": googleID, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return notFound(EntityUser)
	}
	return nil
}

// ===== PROFILES =====

func (s *MongoStore) ProfileByUserID(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.findOne(ctx, collProfiles, bson.M{"userId": userID}, &profile, EntityProfile); err != nil {
		return nil, err
	}
	var user models.User
	if err := s.findOne(ctx, collUsers, bson.M{"_id": userID}, &user, EntityUser); err != nil {
		return nil, err
	}
	profile.User = &user
	return &profile, nil
}

func (s *MongoStore) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	if err := s.exists(ctx, collUsers, profile.UserID, EntityUser); err != nil {
		return err
	}

	now := time.Now().UTC()
	id, err := s.nextID(ctx, collProfiles)
	if err != nil {
		return err
	}
	_, err = s.coll(collProfiles).UpdateOne(ctx,
		bson.M{"userId": profile.UserID},
		bson.M{
			"$set": bson.M{
				"profilePicture": profile.ProfilePicture,
				"bio":            profile.Bio,
				"updatedAt":      now,
			},
			"$setOnInsert": bson.M{"_id": id, "createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// ===== POSTS =====

func (s *MongoStore) CreatePost(ctx context.Context, post *models.Post) error {
	if err := s.exists(ctx, collUsers, post.UserID, EntityUser); err != nil {
		return err
	}
	id, err := s.nextID(ctx, collPosts)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	post.ID, post.CreatedAt, post.UpdatedAt = id, now, now
	if _, err := s.coll(collPosts).InsertOne(ctx, post); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *MongoStore) PostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.findOne(ctx, collPosts, bson.M{"_id": id}, &post, EntityPost); err != nil {
		return nil, err
	}
	posts := []models.Post{post}
	if err := s.loadRelations(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (s *MongoStore) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	filter := bson.M{}
	if q.AuthorID != 0 {
		filter["userId"] = q.AuthorID
	}

	total, err := s.coll(collPosts).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))
	cursor, err := s.coll(collPosts).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, fmt.Errorf("decode posts: %w", err)
	}
	if err := s.loadRelations(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// loadRelations fills User, Comments and Likes the way the gorm preloads do,
// with one query per collection instead of one per post.
func (s *MongoStore) loadRelations(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	var comments []models.Comment
	if err := s.findAll(ctx, collComments, bson.M{"postId": bson.M{"$in": postIDs}},
		bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}, &comments); err != nil {
		return err
	}
	var likes []models.Like
	if err := s.findAll(ctx, collLikes, bson.M{"postId": bson.M{"$in": postIDs}},
		bson.D{{Key: "_id", Value: 1}}, &likes); err != nil {
		return err
	}

	userIDs := map[uint]struct{}{}
	for _, p := range posts {
		userIDs[p.UserID] = struct{}{}
	}
	for _, c := range comments {
		userIDs[c.UserID] = struct{}{}
	}
	for _, l := range likes {
		userIDs[l.UserID] = struct{}{}
	}
	users, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return err
	}

	commentsByPost := map[uint][]models.Comment{}
	for _, c := range comments {
		c.User = users[c.UserID]
		commentsByPost[c.PostID] = append(commentsByPost[c.PostID], c)
	}
	likesByPost := map[uint][]models.Like{}
	for _, l := range likes {
		l.User = users[l.UserID]
		likesByPost[l.PostID] = append(likesByPost[l.PostID], l)
	}
	for i := range posts {
		posts[i].User = users[posts[i].UserID]
		posts[i].Comments = commentsByPost[posts[i].ID]
		posts[i].Likes = likesByPost[posts[i].ID]
	}
	return nil
}

func (s *MongoStore) usersByID(ctx context.Context, ids map[uint]struct{}) (map[uint]*models.User, error) {
	list := make([]uint, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	var users []models.User
	if err := s.findAll(ctx, collUsers, bson.M{"_id": bson.M{"$in": list}}, nil, &users); err != nil {
		return nil, err
	}
	var profiles []models.UserProfile
	if err := s.findAll(ctx, collProfiles, bson.M{"userId": bson.M{"$in": list}}, nil, &profiles); err != nil {
		return nil, err
	}

	out := make(map[uint]*models.User, len(users))
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	for i := range profiles {
		if u, ok := out[profiles[i].UserID]; ok {
			u.Profile = &profiles[i]
		}
	}
	return out, nil
}

func (s *MongoStore) findAll(ctx context.Context, coll string, filter any, sort bson.D, out any) error {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cursor, err := s.coll(coll).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", coll, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll, err)
	}
	return nil
}

func (s *MongoStore) UpdatePost(ctx context.Context, id uint, upd PostUpdate) (*models.Post, error) {
	set := bson.M{"description": upd.Description, "updatedAt": time.Now().UTC()}
	if upd.ImageURL != nil {
		set["imageUrl"] = *upd.ImageURL
	}
	res, err := s.coll(collPosts).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return nil, notFound(EntityPost)
	}
	return s.PostByID(ctx, id)
}

func (s *MongoStore) DeletePost(ctx context.Context, id uint) error {
	res, err := s.coll(collPosts).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return notFound(EntityPost)
	}
	if _, err := s.coll(collLikes).DeleteMany(ctx, bson.M{"postId": id}); err != nil {
		return fmt.Errorf("delete likes of post %d: %w", id, err)
	}
	if _, err := s.coll(collComments).DeleteMany(ctx, bson.M{"postId": id}); err != nil {
		return fmt.Errorf("delete comments of post %d: %w", id, err)
	}
	return nil
}

// ===== LIKES & COMMENTS =====

func (s *MongoStore) AddLike(ctx context.Context, postID, userID uint) (bool, error) {
	if err := s.exists(ctx, collUsers, userID, EntityUser); err != nil {
		return false, err
	}
	if err := s.exists(ctx, collPosts, postID, EntityPost); err != nil {
		return false, err
	}

	id, err := s.nextID(ctx, collLikes)
	if err != nil {
		return false, err
	}
	res, err := s.coll(collLikes).UpdateOne(ctx,
		bson.M{"postId": postID, "userId": userID},
		bson.M{"$setOnInsert": bson.M{"_id": id, "createdAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) CountLikes(ctx context.Context, postID uint) (int64, error) {
	return s.coll(collLikes).CountDocuments(ctx, bson.M{"postId": postID})
}

func (s *MongoStore) AddComment(ctx context.Context, comment *models.Comment) error {
	if err := s.exists(ctx, collPosts, comment.PostID, EntityPost); err != nil {
		return err
	}
	var user models.User
	if err := s.findOne(ctx, collUsers, bson.M{"_id": comment.UserID}, &user, EntityUser); err != nil {
		return err
	}

	id, err := s.nextID(ctx, collComments)
	if err != nil {
		return err
	}
	comment.ID, comment.CreatedAt = id, time.Now().UTC()
	if _, err := s.coll(collComments).InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	comment.User = &user
	return nil
}

// ===== PUSH SUBSCRIPTIONS =====

func (s *MongoStore) SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error {
	if err := s.exists(ctx, collUsers, sub.UserID, EntityUser); err != nil {
		return err
	}
	id, err := s.nextID(ctx, collPushSubs)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.coll(collPushSubs).UpdateOne(ctx,
		bson.M{"endpoint": sub.Endpoint},
		bson.M{
			"$set":         bson.M{"userId": sub.UserID, "p256dh": sub.P256dh, "auth": sub.Auth},
			"$setOnInsert": bson.M{"_id": id, "createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

func (s *MongoStore) PushSubscriptions(ctx context.Context, userID uint) ([]models.PushSubscription, error) {
	subs := []models.PushSubscription{}
	err := s.findAll(ctx, collPushSubs, bson.M{"userId": userID}, bson.D{{Key: "_id", Value: 1}}, &subs)
	return subs, err
}

func (s *MongoStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := s.coll(collPushSubs).DeleteOne(ctx, bson.M{"endpoint": endpoint})
	return err
}
