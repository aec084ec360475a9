package model

import (
	"slices"
	"time"

	"github.com/lib/pq"
)

// Watchlist 共享观影清单
// createdBy 始终在 members 中，movies 中同一 id 最多出现一次
type Watchlist struct {
	ID        string         `json:"id" gorm:"primaryKey;column:id" bson:"_id"`
	Title     string         `json:"title" gorm:"column:title" bson:"title"`
	Members   pq.StringArray `json:"members" gorm:"column:members;type:text[]" bson:"members"`
	Movies    pq.StringArray `json:"movies" gorm:"column:movies;type:text[]" bson:"movies"`
	CreatedBy string         `json:"createdBy" gorm:"column:created_by" bson:"createdBy"`
	CreatedAt time.Time      `json:"createdAt" gorm:"column:created_at" bson:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"column:updated_at;index" bson:"updatedAt"`
	Version   int64          `json:"-" gorm:"column:version;not null;default:0" bson:"version"`
}

func (Watchlist) TableName() string { return "watchlists" }

// HasMember 是否为成员
func (w *Watchlist) HasMember(uid string) bool {
	return slices.Contains(w.Members, uid)
}

// HasMovie 是否已包含该电影
func (w *Watchlist) HasMovie(movieID string) bool {
	return slices.Contains(w.Movies, movieID)
}

// WatchlistInput 创建清单的输入
type WatchlistInput struct {
	Title   string   `json:"title"`
	Members []string `json:"members"`
}

// MemberDetail 成员展示信息，读取时与用户资料拼接得到，不持久化
type MemberDetail struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	PhotoURL *string `json:"photoURL"`
}

// 成员资料的占位信息
const (
	UnknownUserName      = "Unknown User"
	UserNotFoundEmail    = "User not found"
	NoEmailProvided      = "No email provided"
	UnavailableUserName  = "User Info Unavailable"
	UnavailableUserEmail = "Error loading user data"
)

// WatchlistDetails 清单 + 成员详情
type WatchlistDetails struct {
	Watchlist
	MemberDetails []MemberDetail `json:"memberDetails"`
}

// Member 按成员 id 查找详情
func (d *WatchlistDetails) Member(id string) (MemberDetail, bool) {
	for _, m := range d.MemberDetails {
		if m.ID == id {
			return m, true
		}
	}
	return MemberDetail{}, false
}
