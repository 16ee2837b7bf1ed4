package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/ACHamster/travel-diary-mobile/internal/models"
	"github.com/ACHamster/travel-diary-mobile/internal/service/auth"
	"github.com/ACHamster/travel-diary-mobile/internal/service/storage"
	"github.com/ACHamster/travel-diary-mobile/internal/session"
)

// Access tokens expiring within the leeway are refreshed before a command runs
const refreshLeeway = time.Minute

var errUsage = errors.New(`usage: traveldiary [flags] <command> [args]

commands:
  login -u <username> -p <password>
  signup -u <username> -e <email> -p <password> [--avatar <url>]
  logout | whoami | status | refresh | admin | profile
  posts list|approved [--page N --page-size N]
  posts mine | posts get <id> | posts delete <id>
  posts create --title T --content C (--image URL... | --video URL) [--cover URL] [--tag N]
  view <id> | favorite <id> | favorites | history
  upload [--video] <file>...`)

type command func(ctx context.Context, args []string) (any, error)

// Exec runs the command and writes its result to out as JSON
func (a *App) Exec(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	commands := map[string]command{
		"login":     a.login,
		"signup":    a.signup,
		"logout":    a.logout,
		"whoami":    a.whoami,
		"status":    a.status,
		"refresh":   a.refresh,
		"admin":     a.admin,
		"profile":   a.profile,
		"posts":     a.posts,
		"view":      a.view,
		"favorite":  a.favorite,
		"favorites": a.favorites,
		"history":   a.history,
		"upload":    a.upload,
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q\n%w", name, errUsage)
	}

	if name != "login" && name != "signup" {
		if err := a.Auth.EnsureFresh(ctx, refreshLeeway); err != nil {
			a.Logger.Warn("Proactive refresh failed", "error", err)
		}
	}

	result, err := cmd(ctx, args[1:])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (a *App) login(ctx context.Context, args []string) (any, error) {
	var req auth.LoginRequest

	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.StringVarP(&req.Username, "username", "u", "", "Username")
	fs.StringVarP(&req.Password, "password", "p", "", "Password")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return a.Auth.Login(ctx, req)
}

func (a *App) signup(ctx context.Context, args []string) (any, error) {
	var req auth.SignUpRequest

	fs := pflag.NewFlagSet("signup", pflag.ContinueOnError)
	fs.StringVarP(&req.Username, "username", "u", "", "Username")
	fs.StringVarP(&req.Email, "email", "e", "", "Email")
	fs.StringVarP(&req.Password, "password", "p", "", "Password")
	fs.StringVar(&req.Avatar, "avatar", "", "Avatar url, see 'upload'")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return a.Auth.SignUp(ctx, req)
}

func (a *App) logout(ctx context.Context, _ []string) (any, error) {
	if err := a.Auth.Logout(ctx); err != nil {
		return nil, err
	}
	return map[string]string{"message": "logged out"}, nil
}

func (a *App) whoami(ctx context.Context, _ []string) (any, error) {
	current, err := a.Auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	result := map[string]any{"userId": current.UserID, "profile": current.Profile}
	if exp, ok := session.AccessExpiry(current.AccessToken); ok {
		result["accessExpiresAt"] = exp
	}
	return result, nil
}

func (a *App) status(ctx context.Context, _ []string) (any, error) {
	return a.Auth.Status(ctx)
}

func (a *App) refresh(ctx context.Context, _ []string) (any, error) {
	next, err := a.Auth.RefreshAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"userId": next.UserID, "profile": next.Profile}, nil
}

func (a *App) admin(ctx context.Context, _ []string) (any, error) {
	ok, err := a.Auth.VerifyAdmin(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"admin": ok}, nil
}

func (a *App) profile(ctx context.Context, _ []string) (any, error) {
	return a.Users.SyncProfile(ctx)
}

func (a *App) posts(ctx context.Context, args []string) (any, error) {
	if len(args) == 0 {
		return nil, errUsage
	}

	sub, args := args[0], args[1:]
	switch sub {
	case "list", "approved":
		var page models.Page
		fs := pflag.NewFlagSet("posts "+sub, pflag.ContinueOnError)
		fs.IntVar(&page.Page, "page", 0, "Page number")
		fs.IntVar(&page.PageSize, "page-size", 0, "Page size")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if sub == "list" {
			return a.Posts.List(ctx, page)
		}
		return a.Posts.ListApproved(ctx, page)

	case "mine":
		return a.Posts.ListMine(ctx)

	case "get":
		id, err := single(args)
		if err != nil {
			return nil, err
		}
		return a.Posts.Get(ctx, id)

	case "delete":
		id, err := single(args)
		if err != nil {
			return nil, err
		}
		if err := a.Posts.Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{"message": "deleted", "id": id}, nil

	case "create":
		var in models.PostInput
		fs := pflag.NewFlagSet("posts create", pflag.ContinueOnError)
		fs.StringVar(&in.Title, "title", "", "Title")
		fs.StringVar(&in.Content, "content", "", "Content")
		fs.StringArrayVar(&in.Images, "image", nil, "Image url, repeat for several images")
		fs.StringVar(&in.Video, "video", "", "Video url")
		fs.StringVar(&in.CoverImage, "cover", "", "Cover image url")
		fs.IntVar(&in.QuickTag, "tag", 0, "Quick tag")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return a.Posts.Create(ctx, in)

	default:
		return nil, fmt.Errorf("unknown posts command %q\n%w", sub, errUsage)
	}
}

// view opens the post and records it in history
func (a *App) view(ctx context.Context, args []string) (any, error) {
	id, err := single(args)
	if err != nil {
		return nil, err
	}

	post, err := a.Posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Users.AddHistory(ctx, id); err != nil {
		a.Logger.Warn("Failed to record history", "post_id", id, "error", err)
	}
	return post, nil
}

func (a *App) favorite(ctx context.Context, args []string) (any, error) {
	id, err := single(args)
	if err != nil {
		return nil, err
	}
	if err := a.Users.ToggleFavorite(ctx, id); err != nil {
		return nil, err
	}
	return map[string]string{"message": "favorite toggled", "id": id}, nil
}

func (a *App) favorites(ctx context.Context, _ []string) (any, error) {
	return a.Users.Favorites(ctx)
}

func (a *App) history(ctx context.Context, _ []string) (any, error) {
	return a.Users.History(ctx)
}

func (a *App) upload(ctx context.Context, args []string) (any, error) {
	var video bool
	fs := pflag.NewFlagSet("upload", pflag.ContinueOnError)
	fs.BoolVar(&video, "video", false, "Upload a single video, returns video and thumbnail urls")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	paths := fs.Args()
	if len(paths) == 0 || (video && len(paths) != 1) {
		return nil, errUsage
	}

	files := make([]storage.File, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("can't open %s. Err: %w", path, err)
		}
		defer f.Close() // nolint:errcheck
		files = append(files, storage.File{Name: path, Content: f})
	}

	if video {
		return a.Storage.UploadVideo(ctx, files[0].Name, files[0].Content)
	}
	return a.Storage.UploadAll(ctx, files)
}

func single(args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", errUsage
	}
	return args[0], nil
}
