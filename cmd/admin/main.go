package main

import (
	"chatview/backend/internal/config"
	"chatview/backend/internal/identity"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/membership"
	"chatview/backend/internal/models"
	"chatview/backend/internal/presence"
	"chatview/backend/internal/queue"
	"chatview/backend/internal/storage"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
)

const usage = `Usage: admin <command> [args]

Commands:
  add-user <user_id> <username> [display_name]
  token <user_id>
  members <chatview_id>
  presence <user_id>
  offline <user_id>
  purge-queue <chatview_id> <user_id>
  queue-exists <chatview_id> <user_id>`

// tools is what the commands operate on.
type tools struct {
	store   storage.Storage
	members *membership.Manager
	tracker *presence.Tracker
	queues  *queue.Manager
	auth    *identity.JWTAuthenticator
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: "warn", ServiceName: "chatview-admin"})

	db, err := storage.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect database: %v\n", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	s := storage.NewStorageService(db)
	queues := queue.NewManager(queue.NewRedisBroker(rdb, cfg.Queue.Prefix), cfg.Queue.ReadTimeout)
	t := &tools{
		store:   s,
		members: membership.NewManager(s, queues, nil),
		tracker: presence.NewTracker(s),
		queues:  queues,
		auth:    identity.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		out:     os.Stdout,
	}

	if err := t.run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// errUsage is returned for a wrong argument count or unknown command.
type errUsage string

func (e errUsage) Error() string { return "usage: admin " + string(e) }

func (t *tools) run(ctx context.Context, args []string) error {
	command, args := args[0], args[1:]

	switch command {
	case "add-user":
		if len(args) < 2 || len(args) > 3 {
			return errUsage("add-user <user_id> <username> [display_name]")
		}
		u := &models.User{ID: args[0], Username: args[1]}
		if len(args) == 3 {
			u.DisplayName = args[2]
		}
		if err := t.store.SaveUser(ctx, u); err != nil {
			return err
		}
		fmt.Fprintf(t.out, "User %s saved.\n", u.ID)

	case "token":
		if len(args) != 1 {
			return errUsage("token <user_id>")
		}
		if _, err := t.store.FindUser(ctx, args[0]); err != nil {
			return err
		}
		token, err := t.auth.Issue(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(t.out, token)

	case "members":
		if len(args) != 1 {
			return errUsage("members <chatview_id>")
		}
		ids, err := t.members.MemberIDs(ctx, args[0])
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(t.out, id)
		}

	case "presence":
		if len(args) != 1 {
			return errUsage("presence <user_id>")
		}
		online, err := t.tracker.IsOnline(ctx, args[0])
		if err != nil {
			return err
		}
		if !online {
			fmt.Fprintf(t.out, "%s offline\n", args[0])
			return nil
		}
		sessionID, err := t.tracker.SessionIDFor(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "%s online session=%s\n", args[0], sessionID)

	case "offline":
		if len(args) != 1 {
			return errUsage("offline <user_id>")
		}
		if err := t.tracker.SetOffline(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(t.out, "User %s marked offline.\n", args[0])

	case "purge-queue":
		if len(args) != 2 {
			return errUsage("purge-queue <chatview_id> <user_id>")
		}
		if !t.queues.Purge(ctx, args[0], args[1]) {
			return fmt.Errorf("purge of %s failed", queue.Name(args[0], args[1]))
		}
		fmt.Fprintf(t.out, "Queue %s purged.\n", queue.Name(args[0], args[1]))

	case "queue-exists":
		if len(args) != 2 {
			return errUsage("queue-exists <chatview_id> <user_id>")
		}
		fmt.Fprintf(t.out, "%s exists=%t\n", queue.Name(args[0], args[1]), t.queues.Exists(ctx, args[0], args[1]))

	default:
		return errUsage("<command>\n\n" + usage)
	}
	return nil
}
