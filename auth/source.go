package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrewpaige1/tarjetas-api/logger"
	"github.com/andrewpaige1/tarjetas-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserSource resolves principals against the users table. When userinfo is
// set, profile fields are read from the identity provider on verification.
type UserSource struct {
	db       *gorm.DB
	userinfo *UserInfoClient
	log      *logger.Logger
}

func NewUserSource(db *gorm.DB, userinfo *UserInfoClient, log *logger.Logger) *UserSource {
	if log == nil {
		log = logger.Nop()
	}
	return &UserSource{db: db, userinfo: userinfo, log: log.With("service", "UserSource")}
}

func (s *UserSource) LocalUser(ctx context.Context, p Principal) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("auth0_id = ?", p.Subject).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyUser confirms the principal and creates or updates its user row.
// Nickname and email only change when the provider reports a value.
func (s *UserSource) VerifyUser(ctx context.Context, p Principal) (*models.User, error) {
	nickname, email := p.Nickname, p.Email
	if s.userinfo != nil && p.Token != "" {
		info, err := s.userinfo.Fetch(ctx, p.Token)
		if err != nil {
			return nil, err
		}
		if info.Subject != "" && info.Subject != p.Subject {
			return nil, fmt.Errorf("userinfo subject mismatch")
		}
		if info.Nickname != "" {
			nickname = info.Nickname
		} else if info.Name != "" && nickname == "" {
			nickname = info.Name
		}
		if info.Email != "" {
			email = info.Email
		}
	}

	db := s.db.WithContext(ctx)
	user, err := s.LocalUser(ctx, p)
	if err != nil {
		return nil, err
	}
	if user == nil {
		fresh := models.User{Auth0ID: p.Subject, Nickname: nickname, Email: email}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
		if res.Error != nil {
			s.log.Error("VerifyUser: create failed", "subject", p.Subject, "error", res.Error)
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			s.log.Info("Created new user", "subject", p.Subject, "nickname", nickname)
			return &fresh, nil
		}
		if user, err = s.LocalUser(ctx, p); err != nil || user == nil {
			return nil, fmt.Errorf("user %s vanished after insert conflict", p.Subject)
		}
	}

	changed := false
	if nickname != "" && user.Nickname != nickname {
		user.Nickname = nickname
		changed = true
	}
	if email != "" && user.Email != email {
		user.Email = email
		changed = true
	}
	if changed {
		if err := db.Save(user).Error; err != nil {
			s.log.Error("VerifyUser: update failed", "subject", p.Subject, "error", err)
			return nil, err
		}
	}
	return user, nil
}
