package api

import (
	"context"
	"errors"
	"log/slog"

	"felicidade/internal/model"

	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin 根据配置初始化管理员账户。
//
// 没有管理员就没人能发布 feed 条目，所以新装环境需要一个种子账户。
// 幂等：账户已存在时只确保管理员标记为真。未配置邮箱或密码时跳过。
func (s *Server) SeedAdmin(ctx context.Context) error {
	email := s.cfg.Security.AdminEmail
	password := s.cfg.Security.AdminPassword
	if email == "" || password == "" {
		s.logger.Debug("admin seed skipped, no credentials configured")
		return nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		if user.IsAdmin {
			return nil
		}
		user.IsAdmin = true
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		s.logger.Info("existing account promoted to admin", slog.String("email", email))
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := model.User{
		Name:     s.cfg.Security.AdminName,
		Email:    email,
		Password: string(hash),
		IsAdmin:  true,
	}
	if err := s.users.CreateWithAgenda(ctx, &admin); err != nil {
		return err
	}

	s.logger.Info("admin account seeded", slog.String("email", email))
	return nil
}
