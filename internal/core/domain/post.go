package domain

import (
	"fmt"
	"time"
)

type Post struct {
	ID                   int64     `json:"id"`
	Author               int64     `json:"author"`
	AuthorUsername       string    `json:"author_username"`
	AuthorProfilePicture *string   `json:"author_profile_picture"`
	Content              string    `json:"content"`
	Image                *string   `json:"image"`
	CreatedAt            time.Time `json:"created_at"`
	LikesCount           int       `json:"likes_count"`
	CommentsCount        int       `json:"comments_count"`
	RetweetsCount        int       `json:"retweets_count"`
	LikedByMe            bool      `json:"liked_by_me"`
	RetweetedByMe        bool      `json:"retweeted_by_me"`
}

type Comment struct {
	ID                   int64     `json:"id"`
	Author               int64     `json:"author"`
	AuthorUsername       string    `json:"author_username"`
	AuthorProfilePicture *string   `json:"author_profile_picture"`
	Post                 int64     `json:"post"`
	Content              string    `json:"content"`
	CreatedAt            time.Time `json:"created_at"`
}

// TimeAgo produit le libellé relatif affiché à côté d'un post.
func TimeAgo(t, now time.Time) string {
	minutes := int(now.Sub(t) / time.Minute)
	if minutes < 1 {
		return "now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d d", hours/24)
}
