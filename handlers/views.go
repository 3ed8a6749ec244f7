package handlers

import (
	"time"

	"pulse/models"
)

// The types below are the wire shapes. They project the models so that no
// handler leaks fields such as email or password hashes by accident.

type userRef struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type authorProfile struct {
	ProfilePicture string `json:"profilePicture"`
}

type postAuthor struct {
	ID       uint           `json:"id"`
	Username string         `json:"username"`
	Profile  *authorProfile `json:"profile"`
}

type commentSummary struct {
	ID      uint    `json:"id"`
	Content string  `json:"content"`
	User    userRef `json:"user"`
}

type likeSummary struct {
	ID   uint    `json:"id"`
	User userRef `json:"user"`
}

type postView struct {
	ID           uint             `json:"id"`
	UserID       uint             `json:"userId"`
	Description  string           `json:"description"`
	ImageURL     *string          `json:"imageUrl"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	User         postAuthor       `json:"user"`
	Comments     []commentSummary `json:"comments"`
	Likes        []likeSummary    `json:"likes"`
	LikeCount    int              `json:"likeCount"`
	CommentCount int              `json:"commentCount"`
}

type commentView struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"postId"`
	UserID    uint      `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	User      userRef   `json:"user"`
}

type profileUser struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type profileView struct {
	UserID         uint        `json:"userId"`
	ProfilePicture string      `json:"profilePicture"`
	Bio            string      `json:"bio"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	User           profileUser `json:"user"`
}

func refOf(u *models.User, id uint) userRef {
	if u == nil {
		return userRef{ID: id}
	}
	return userRef{ID: u.ID, Username: u.Username}
}

func newPostView(p *models.Post) postView {
	v := postView{
		ID:           p.ID,
		UserID:       p.UserID,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		User:         postAuthor{ID: p.UserID},
		Comments:     make([]commentSummary, 0, len(p.Comments)),
		Likes:        make([]likeSummary, 0, len(p.Likes)),
		LikeCount:    len(p.Likes),
		CommentCount: len(p.Comments),
	}
	if p.User != nil {
		v.User.Username = p.User.Username
		if p.User.Profile != nil {
			v.User.Profile = &authorProfile{ProfilePicture: p.User.Profile.ProfilePicture}
		}
	}
	for _, c := range p.Comments {
		v.Comments = append(v.Comments, commentSummary{ID: c.ID, Content: c.Content, User: refOf(c.User, c.UserID)})
	}
	for _, l := range p.Likes {
		v.Likes = append(v.Likes, likeSummary{ID: l.ID, User: refOf(l.User, l.UserID)})
	}
	return v
}

func newPostViews(posts []models.Post) []postView {
	out := make([]postView, 0, len(posts))
	for i := range posts {
		out = append(out, newPostView(&posts[i]))
	}
	return out
}

func newCommentView(c *models.Comment) commentView {
	return commentView{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		User:      refOf(c.User, c.UserID),
	}
}

func newProfileView(p *models.UserProfile) profileView {
	v := profileView{
		UserID:         p.UserID,
		ProfilePicture: p.ProfilePicture,
		Bio:            p.Bio,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.User != nil {
		v.User = profileUser{
			Email:     p.User.Email,
			Username:  p.User.Username,
			Name:      p.User.Name,
			Role:      p.User.Role,
			CreatedAt: p.User.CreatedAt,
			UpdatedAt: p.User.UpdatedAt,
		}
	}
	return v
}
