// Package main provides the deck control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/19deck/internal/api/connect"
	deckv1 "github.com/osa030/19deck/internal/api/deckv1"
	"github.com/osa030/19deck/internal/api/deckv1/deckv1connect"
)

var (
	app    = kingpin.New("19deck-deckctl", "19deck playback control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// read-only commands
	statusCmd    = app.Command("status", "Show the player state")
	queueCmd     = app.Command("queue", "List the playlist").Alias("ls")
	subscribeCmd = app.Command("subscribe", "Subscribe to notifications")

	// play command
	playCmd    = app.Command("play", "Play a playlist track by id, or any file/URL with --uri")
	playID     = playCmd.Arg("track-id", "Track ID from the playlist").String()
	playURI    = playCmd.Flag("uri", "Ad-hoc file path or URL to play").String()
	playTitle  = playCmd.Flag("title", "Title for an ad-hoc track").String()
	playSource = playCmd.Flag("indirect", "Treat --uri as an indirect source (e.g. spotify:track:<id>)").Bool()

	toggleCmd   = app.Command("toggle", "Toggle play/pause").Alias("pause")
	nextCmd     = app.Command("next", "Skip to the next track")
	prevCmd     = app.Command("prev", "Restart or go to the previous track").Alias("previous")
	seekCmd     = app.Command("seek", "Seek to a position")
	seekPos     = seekCmd.Arg("position", "Position as seconds, mm:ss, or a Go duration (1m30s)").Required().String()
	volumeCmd   = app.Command("volume", "Set the volume")
	volumeLevel = volumeCmd.Arg("level", "Volume between 0 and 1").Required().Float64()
	shuffleCmd  = app.Command("shuffle", "Toggle shuffle")
	repeatCmd   = app.Command("repeat", "Cycle repeat mode (off, all, one)")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx := context.Background()
	player := deckv1connect.NewPlayerServiceClient(http.DefaultClient, *server)

	switch command {
	case statusCmd.FullCommand():
		status(ctx, player)
		return
	case queueCmd.FullCommand():
		queue(ctx, player)
		return
	case subscribeCmd.FullCommand():
		subscribe(ctx, player)
		return
	}

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}
	control := deckv1connect.NewControlServiceClient(http.DefaultClient, *server,
		connect.WithInterceptors(apiconnect.NewAdminTokenInterceptor(*token)))

	var (
		resp *connect.Response[deckv1.CommandResponse]
		err  error
	)
	empty := func() *connect.Request[deckv1.Empty] { return connect.NewRequest(&deckv1.Empty{}) }

	switch command {
	case playCmd.FullCommand():
		resp, err = control.PlayTrack(ctx, connect.NewRequest(playRequest()))
	case toggleCmd.FullCommand():
		resp, err = control.TogglePlayPause(ctx, empty())
	case nextCmd.FullCommand():
		resp, err = control.Next(ctx, empty())
	case prevCmd.FullCommand():
		resp, err = control.Previous(ctx, empty())
	case seekCmd.FullCommand():
		pos, perr := parsePosition(*seekPos)
		if perr != nil {
			fmt.Printf("Error: %v\n", perr)
			os.Exit(1)
		}
		resp, err = control.SeekTo(ctx, connect.NewRequest(&deckv1.SeekToRequest{PositionMs: pos.Milliseconds()}))
	case volumeCmd.FullCommand():
		resp, err = control.SetVolume(ctx, connect.NewRequest(&deckv1.SetVolumeRequest{Volume: *volumeLevel}))
	case shuffleCmd.FullCommand():
		r, serr := control.ToggleShuffle(ctx, empty())
		exitOnError(serr)
		fmt.Println(r.Msg.Message)
		return
	case repeatCmd.FullCommand():
		r, rerr := control.ToggleRepeat(ctx, empty())
		exitOnError(rerr)
		fmt.Println(r.Msg.Message)
		return
	}

	exitOnError(err)
	if resp.Msg.Message != "" {
		fmt.Println(resp.Msg.Message)
	}
	printState(resp.Msg.State)
}

func playRequest() *deckv1.PlayTrackRequest {
	if *playURI == "" {
		if *playID == "" {
			fmt.Println("Error: a track id or --uri is required")
			os.Exit(1)
		}
		return &deckv1.PlayTrackRequest{TrackId: *playID}
	}

	kind := "direct"
	if *playSource {
		kind = "indirect"
	}
	return &deckv1.PlayTrackRequest{Track: &deckv1.Track{
		Id:         *playID,
		Title:      *playTitle,
		SourceKind: kind,
		Source:     *playURI,
	}}
}

// parsePosition accepts "90", "1:30" or "1m30s".
func parsePosition(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	if m, sec, ok := strings.Cut(s, ":"); ok {
		mins, err1 := strconv.Atoi(m)
		secs, err2 := strconv.Atoi(sec)
		if err1 == nil && err2 == nil && secs < 60 {
			return time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return d, nil
}

func status(ctx context.Context, client *deckv1connect.PlayerServiceClient) {
	resp, err := client.GetState(ctx, connect.NewRequest(&deckv1.GetStateRequest{}))
	exitOnError(err)

	fmt.Println("\n=== PLAYER STATE ===")
	printState(resp.Msg.State)
	fmt.Println()
}

func queue(ctx context.Context, client *deckv1connect.PlayerServiceClient) {
	resp, err := client.ListQueue(ctx, connect.NewRequest(&deckv1.ListQueueRequest{}))
	exitOnError(err)

	total := time.Duration(resp.Msg.TotalDuration) * time.Millisecond
	fmt.Printf("Playlist (%d tracks, %s):\n", len(resp.Msg.Tracks), total.Round(time.Second))
	for i, t := range resp.Msg.Tracks {
		marker := "  "
		if int32(i) == resp.Msg.CurrentIndex {
			marker = "▶ "
		}
		flag := ""
		if t.Ancillary {
			flag = " [ancillary]"
		}
		fmt.Printf("%s%3d. %s  %s (%s)%s\n", marker, i+1, t.Id, trackName(t), formatMs(t.DurationMs), flag)
	}
}

func subscribe(ctx context.Context, client *deckv1connect.PlayerServiceClient) {
	stream, err := client.SubscribeNotifications(ctx, connect.NewRequest(&deckv1.SubscribeNotificationsRequest{}))
	exitOnError(err)

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		os.Exit(0)
	}()

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *deckv1.Notification) {
	fmt.Printf("\n[Sequence: %d] === %s ===\n", n.SequenceNo, strings.ToUpper(strings.ReplaceAll(string(n.Type), "_", " ")))

	if n.Message != "" {
		fmt.Printf("  %s\n", n.Message)
	}
	if n.Error != "" {
		fmt.Printf("  Error: %s\n", n.Error)
	}
	if n.State != nil {
		printState(n.State)
	} else if n.Track != nil {
		fmt.Printf("  Track: %s\n", trackName(n.Track))
	}
}

func printState(s *deckv1.PlayerState) {
	if s == nil {
		return
	}
	if s.CurrentTrack == nil {
		fmt.Println("  No track selected")
	} else {
		state := "⏸  Paused"
		switch {
		case s.IsLoading:
			state = "⏳ Loading"
		case s.IsPlaying:
			state = "▶️  Playing"
		}
		fmt.Printf("  %s: %s\n", state, trackName(s.CurrentTrack))
		fmt.Printf("  Position: %s / %s (index %d)\n", formatMs(s.PositionMs), formatMs(s.DurationMs), s.CurrentIndex)
	}
	fmt.Printf("  Volume: %.0f%%  Shuffle: %v  Repeat: %s\n", s.Volume*100, s.Shuffle, s.Repeat)
}

func trackName(t *deckv1.Track) string {
	name := t.Title
	if name == "" {
		name = t.Id
	}
	if t.Artist != "" {
		name = t.Artist + " - " + name
	}
	return name
}

func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
