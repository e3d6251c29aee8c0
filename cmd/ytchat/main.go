package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"ytchat/internal/client"
	"ytchat/internal/tui"
	"ytchat/internal/videoref"
)

func main() {
	_ = godotenv.Load()

	server := os.Getenv("YTCHAT_SERVER")
	if server == "" {
		server = "http://localhost:8000"
	}
	var timeout time.Duration
	flag.StringVar(&server, "server", server, "Base URL of the ytchat API")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Per-request timeout")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: ytchat [--server=http://localhost:8000] <youtube-url>")
		os.Exit(1)
	}
	videoURL := flag.Arg(0)
	videoID, err := videoref.Extract(videoURL)
	if err != nil {
		log.Fatalf("%s: %v", videoURL, err)
	}

	c := client.New(server, timeout)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_, err = c.Health(ctx)
	cancel()
	if err != nil {
		log.Fatalf("server %s is not reachable: %v", server, err)
	}

	m := tui.New(c, videoURL, videoID, timeout)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
