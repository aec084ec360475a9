package model

import (
	"time"

	"github.com/lib/pq"
)

// UserProfile 用户资料文档，uid 由身份服务签发且不会变更
type UserProfile struct {
	UID       string         `json:"uid" gorm:"primaryKey;column:uid" bson:"_id"`
	FullName  string         `json:"fullName" gorm:"column:full_name" bson:"fullName"`
	Email     string         `json:"email" gorm:"column:email;index" bson:"email"`
	Watchlist pq.StringArray `json:"watchlist" gorm:"column:watchlist;type:text[]" bson:"watchlist"`
	CreatedAt time.Time      `json:"createdAt" gorm:"column:created_at" bson:"createdAt"`
}

func (UserProfile) TableName() string { return "users" }

// Credential 身份服务的账号记录
type Credential struct {
	UID          string    `json:"uid" gorm:"primaryKey;column:uid" bson:"_id"`
	Email        string    `json:"email" gorm:"column:email;uniqueIndex" bson:"email"`
	PasswordHash string    `json:"-" gorm:"column:password_hash" bson:"passwordHash"`
	DisplayName  string    `json:"displayName" gorm:"column:display_name" bson:"displayName"`
	CreatedAt    time.Time `json:"createdAt" gorm:"column:created_at;index" bson:"createdAt"`
}

func (Credential) TableName() string { return "credentials" }

// AuthUser 当前登录身份
type AuthUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// SignedInUser 登录/注册后返回给调用方的信息
type SignedInUser struct {
	UID         string   `json:"uid"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Watchlist   []string `json:"watchlist,omitempty"`
}
