package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"ordermgr/internal/config"
	"ordermgr/internal/db"
	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/logger"
	"ordermgr/internal/repository"
	"ordermgr/internal/service"
	"ordermgr/internal/validation"
)

type adminInput struct {
	Username string `json:"username" validate:"required,min=3,max=64,username" label:"ユーザー名"`
	Email    string `json:"email" validate:"required,email,max=120" label:"メールアドレス"`
	Password string `json:"password" validate:"required,min=8" label:"パスワード"`
}

func main() {
	var in adminInput
	flag.StringVar(&in.Username, "username", "", "admin username")
	flag.StringVar(&in.Email, "email", "", "admin email")
	flag.StringVar(&in.Password, "password", "", "admin password (defaults to $ADMIN_PASSWORD)")
	flag.Parse()

	if in.Password == "" {
		in.Password = os.Getenv("ADMIN_PASSWORD")
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	cfg := config.Load()
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})

	if err := validation.New().Validate(&in); err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			for field, msgs := range verr.Fields {
				for _, msg := range msgs {
					fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
				}
			}
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("validate input")
	}

	gormDB, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	users := service.NewUserService(repository.NewUserRepository(gormDB), nil)
	user, err := users.CreateUser(context.Background(), service.NewUserInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
		IsAdmin:  true,
	})
	switch {
	case errors.Is(err, apperrors.ErrUsernameTaken):
		log.Fatal().Str("username", in.Username).Msg("このユーザー名は既に使用されています。")
	case errors.Is(err, apperrors.ErrEmailTaken):
		log.Fatal().Str("email", in.Email).Msg("このメールアドレスは既に使用されています。")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create admin")
	}

	log.Info().Uint("id", user.ID).Str("username", user.Username).Msg("admin account created")
}
