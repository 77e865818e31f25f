package main

import (
	"bufio"
	"context"
	"log"
	"os"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/shop-chat-client/auth"
	"github.com/example/shop-chat-client/config"
	"github.com/example/shop-chat-client/modules/directory"
	"github.com/example/shop-chat-client/modules/history"
	"github.com/example/shop-chat-client/modules/notify"
	"github.com/example/shop-chat-client/modules/orchestrator"
	"github.com/example/shop-chat-client/modules/session"
	"github.com/example/shop-chat-client/restclient"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Shop Chat Client ===")

	cfg := config.Load()
	log.Printf("API URL: %s", cfg.APIBaseURL)
	log.Printf("Socket URL: %s", cfg.SocketURL)

	creds := auth.NewStaticTokenProvider(cfg.Token)
	if cfg.Token != "" {
		if exp, err := auth.Expiry(cfg.Token); err != nil {
			log.Printf("Warning: bearer token is not a decodable JWT: %v", err)
		} else if !exp.IsZero() && exp.Before(time.Now()) {
			log.Printf("Warning: bearer token expired at %s", exp.Format(time.RFC3339))
		}
	}

	// Create mono application with embedded NATS for the internal event bus
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithNATSPort(cfg.NATSPort),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	rest := restclient.New(cfg.APIBaseURL, creds)
	dirModule := directory.NewModule(app.Logger(), rest)
	histModule := history.NewModule(app.Logger(), rest)

	sessCfg := session.DefaultConfig(cfg.SocketURL)
	sessCfg.HeartBeat = cfg.HeartBeat
	sessCfg.ReconnectDelay = cfg.ReconnectDelay
	sessCfg.MaxReconnectDelay = cfg.MaxReconnectDelay
	sessModule := session.NewModule(app.Logger(), sessCfg, creds)

	chatModule := orchestrator.NewModule(
		app.Logger(), dirModule, histModule, sessModule,
		cfg.UserID, cfg.Username, cfg.HistoryPageSize,
	)
	notifyModule := notify.NewModule(app.Logger())

	// Register modules: leaf modules first, then the orchestrator
	// (event emitter), then the notify consumer.
	app.Register(dirModule)
	app.Register(histModule)
	app.Register(sessModule)
	app.Register(chatModule)
	app.Register(notifyModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	chatModule.Refresh(context.Background())
	printStartupInfo(chatModule)

	go runPrompt(chatModule)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(chat *orchestrator.Module) {
	log.Println("")
	log.Println("Chat client started. Commands:")
	log.Println("  /rooms           - list rooms, most recent activity first")
	log.Println("  /open <peerID>   - open (or get) the room with a peer and join it")
	log.Println("  /join <roomID>   - make a room active")
	log.Println("  /image <path>    - send an image file to the active room")
	log.Println("  <text>           - send a text message to the active room")
	log.Println("")
	for i, room := range chat.Rooms() {
		log.Printf("  [%d] %s (%s)", i, room.PeerName, room.ID)
	}
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

// runPrompt reads commands from stdin and drives the orchestrator.
func runPrompt(chat *orchestrator.Module) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/rooms":
			for i, room := range chat.Rooms() {
				marker := " "
				if room.ID == chat.ActiveRoom() {
					marker = "*"
				}
				log.Printf("%s [%d] %s (%s)", marker, i, room.PeerName, room.ID)
			}

		case strings.HasPrefix(line, "/open "):
			peerID := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			room, err := chat.OpenNewRoom(context.Background(), peerID)
			if err != nil {
				log.Printf("Failed to open room: %v", err)
				continue
			}
			log.Printf("Joined room %s with %s", room.ID, room.PeerName)

		case strings.HasPrefix(line, "/join "):
			roomID := strings.TrimSpace(strings.TrimPrefix(line, "/join "))
			joined := false
			for _, room := range chat.Rooms() {
				if room.ID == roomID {
					chat.SelectRoom(context.Background(), room)
					joined = true
					break
				}
			}
			if !joined {
				log.Printf("Unknown room: %s", roomID)
				continue
			}
			for _, msg := range chat.Messages() {
				log.Printf("[%s] %s: %s", msg.CreatedAt.Format("15:04"), msg.SenderName, msg.Content)
			}

		case strings.HasPrefix(line, "/image "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/image "))
			if err := chat.SendImage(path); err != nil {
				log.Printf("Failed to send image: %v", err)
			}

		default:
			chat.SendText(line)
		}
	}
}
