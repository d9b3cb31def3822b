package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ageniuscoder/mmchat/client/internal/auth"
	"github.com/ageniuscoder/mmchat/client/internal/cache"
	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/config"
	"github.com/ageniuscoder/mmchat/client/internal/reconcile"
	"github.com/ageniuscoder/mmchat/client/internal/rest"
	"github.com/ageniuscoder/mmchat/client/internal/transport"
)

func main() {
	fmt.Println("Entry point of MmChat client")
	workspace := flag.String("workspace", "", "workspace id to join")
	migrate := flag.Bool("migrate", false, "run cache migrations and exit")
	flag.Parse()

	//config part
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using environment: %v", err)
	}
	cfg := config.MustLoad()

	//local cache handling
	msgCache, err := cache.New(cfg.CacheDSN)
	if err != nil {
		log.Fatalf("Error opening cache: %v", err)
	}
	defer msgCache.Close()

	if err := msgCache.Migrate(); err != nil {
		log.Fatalf("Migration failed %v", err)
	}
	if *migrate {
		slog.Info("Migration Completed")
		return
	}
	if *workspace == "" {
		log.Fatal("missing -workspace")
	}

	creds := auth.NewCredentials(cfg.Token)
	claims, err := creds.Claims()
	if err != nil {
		log.Fatalf("Bad or missing token: %v", err)
	}

	store := chat.NewStore()
	store.Dispatch(chat.SessionStarted{UserID: claims.UserID})
	store.Dispatch(chat.WorkspaceSelected{WorkspaceID: *workspace})

	// Warm start from the local cache; REST and the socket overwrite it.
	if convs, err := msgCache.LoadConversations(*workspace); err == nil && len(convs) > 0 {
		store.Dispatch(chat.ConversationsLoaded{Conversations: convs})
		for _, conv := range convs {
			if msgs, err := msgCache.LoadMessages(conv.ID, 200); err == nil && len(msgs) > 0 {
				store.Dispatch(chat.MessagesLoaded{ConversationID: conv.ID, Messages: msgs})
			}
		}
		slog.Info("warm start from cache", "conversations", len(convs))
	}

	// Write-behind: every snapshot lands in the cache.
	store.Subscribe(func(s chat.State) {
		if err := msgCache.Snapshot(s); err != nil {
			log.Printf("[cache] snapshot failed: %v", err)
		}
	})

	tr := transport.New(transport.Config{
		URL:           cfg.SocketURL,
		AckTimeout:    cfg.AckTimeout,
		ReconnectBase: cfg.ReconnectBase,
		ReconnectMax:  cfg.ReconnectMax,
		JoinInterval:  cfg.JoinInterval,
	}, creds)

	rec := reconcile.New(tr, store, cfg.TypingDebounce)
	rec.Bind()
	defer rec.Unbind()

	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		log.Fatalf("Connect failed: %v", err)
	}
	defer tr.Disconnect()

	if err := rec.JoinWorkspace(ctx, *workspace); err != nil {
		log.Printf("join_workspace: %v", err)
	}

	// REST refresh of conversations and presence.
	api := rest.New(cfg.APIBaseURL, creds)
	go func() {
		if convs, err := api.Conversations(ctx, *workspace); err == nil {
			store.Dispatch(chat.ConversationsLoaded{Conversations: convs})
		} else {
			log.Printf("[rest] conversations: %v", err)
		}
		if presence, err := api.PresenceSnapshot(ctx, *workspace); err == nil {
			store.Dispatch(chat.PresenceSnapshotLoaded{Presence: presence})
		} else {
			log.Printf("[rest] presence: %v", err)
		}
	}()

	store.Subscribe(func(s chat.State) {
		slog.Info("state",
			"connected", s.Connected,
			"conversations", len(s.Conversations),
			"unread", s.TotalUnread(),
		)
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")
}
