package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/user/watchwise/internal/model"
	"gorm.io/gorm"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// CreateCredential 创建账号，邮箱重复返回 ErrDuplicateEmail
func (r *CredentialRepository) CreateCredential(ctx context.Context, c *model.Credential) error {
	c.Email = strings.ToLower(c.Email)
	err := r.db.WithContext(ctx).Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

// FindByEmail 根据邮箱查找账号
func (r *CredentialRepository) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var c model.Credential
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListWithoutProfile 查找缺少资料文档的账号
func (r *CredentialRepository) ListWithoutProfile(ctx context.Context, before time.Time, limit int) ([]*model.Credential, error) {
	var creds []*model.Credential
	err := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Where("NOT EXISTS (SELECT 1 FROM users u WHERE u.uid = credentials.uid)").
		Order("created_at ASC").
		Limit(limit).
		Find(&creds).Error
	return creds, err
}
