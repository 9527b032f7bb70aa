package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	apiclient "github.com/vnq1909/music-web-stream-1/pkg/api/client"
	"golang.org/x/term"
)

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "register":
		err = commandRegister(args)
	case "songs":
		err = commandSongs(args)
	case "upload":
		err = commandUpload(args)
	case "edit":
		err = commandEdit(args)
	case "delete":
		err = commandDelete(args)
	case "purge":
		err = commandPurge(args)
	case "stream":
		err = commandStream(args)
	case "playlist":
		err = commandPlaylist(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func readPassword(flagValue string) (string, error) {
	secret := strings.TrimSpace(flagValue)
	if secret != "" {
		return secret, nil
	}
	fmt.Print("Password: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := readPassword(*password)
	if err != nil {
		return err
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = resp.Token
	if err := saveConfig(cfg); err != nil {
		return err
	}
	if resp.IsAdmin {
		fmt.Println("login successful (admin)")
		return nil
	}
	fmt.Println("login successful")
	return nil
}

func commandRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "Full name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	fs.Parse(args)

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*email) == "" {
		return errors.New("--name and --email are required")
	}
	secret, err := readPassword(*password)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.Register(ctx, *name, *email, secret)
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", user.Email, user.ID)
	return nil
}

// session loads the saved config and returns a client plus the stored token.
func session(requireToken bool) (*apiclient.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if requireToken && token == "" {
		return nil, "", errors.New("please login first using 'tunectl login'")
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return nil, "", err
	}
	return client, token, nil
}

func commandSongs(args []string) error {
	fs := flag.NewFlagSet("songs", flag.ExitOnError)
	id := fs.String("id", "", "Show a single song")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if strings.TrimSpace(*id) != "" {
		client, token, err := session(true)
		if err != nil {
			return err
		}
		song, err := client.GetSong(ctx, token, *id)
		if err != nil {
			return err
		}
		printSong(song)
		return nil
	}

	client, _, err := session(false)
	if err != nil {
		return err
	}
	songs, err := client.ListSongs(ctx)
	if err != nil {
		return err
	}
	for _, song := range songs {
		printSong(song)
	}
	return nil
}

func printSong(song apiclient.Song) {
	fmt.Printf("%s\t%s\t%s\t%s\t%s\n", song.ID, song.Title, song.Artist, song.Song, song.CreatedAt.Format(time.RFC3339))
}

func commandUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "Audio file to upload")
	title := fs.String("title", "", "Song title")
	artist := fs.String("artist", "", "Artist name")
	album := fs.String("album", "", "Album name")
	description := fs.String("description", "", "Description")
	timeout := fs.Duration("timeout", 10*time.Minute, "Upload timeout")
	fs.Parse(args)

	if strings.TrimSpace(*file) == "" {
		return errors.New("--file is required")
	}
	client, token, err := session(true)
	if err != nil {
		return err
	}
	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	input := apiclient.SongInput{Title: *title, Artist: *artist, Album: *album, Description: *description}
	name := filepath.Base(*file)
	song, err := client.UploadSong(ctx, token, input, name, mime.TypeByExtension(filepath.Ext(name)), f)
	if err != nil {
		return err
	}
	fmt.Printf("uploaded %s as %s\n", song.ID, song.Song)
	return nil
}

func commandEdit(args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.String("id", "", "Song identifier")
	var patch apiclient.SongPatch
	fs.Func("title", "New title", func(v string) error { patch.Title = &v; return nil })
	fs.Func("artist", "New artist", func(v string) error { patch.Artist = &v; return nil })
	fs.Func("album", "New album", func(v string) error { patch.Album = &v; return nil })
	fs.Func("description", "New description", func(v string) error { patch.Description = &v; return nil })
	fs.Parse(args)

	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}
	client, token, err := session(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	song, err := client.EditSong(ctx, token, *id, patch)
	if err != nil {
		return err
	}
	printSong(song)
	return nil
}

func commandDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Song identifier")
	fs.Parse(args)

	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}
	client, token, err := session(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := client.DeleteSong(ctx, token, *id)
	for _, step := range report.Steps {
		line := fmt.Sprintf("%s\t%s", step.Step, step.Status)
		if step.Error != "" {
			line += "\t" + step.Error
		}
		fmt.Println(line)
	}
	if err != nil {
		return err
	}
	fmt.Printf("song deleted (%d playlist entries removed)\n", report.PlaylistEntriesRemoved)
	return nil
}

func commandPurge(args []string) error {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	id := fs.String("id", "", "Song identifier")
	fs.Parse(args)

	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}
	client, token, err := session(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := client.PurgeSong(ctx, token, *id)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d playlist entries\n", removed)
	return nil
}

func commandStream(args []string) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	name := fs.String("song", "", "Stored file name (the song field of a catalog entry)")
	out := fs.String("out", "", "Destination file (default stdout)")
	byteRange := fs.String("range", "", "Byte range, e.g. bytes=0-1048575")
	fs.Parse(args)

	if strings.TrimSpace(*name) == "" {
		return errors.New("--song is required")
	}
	client, _, err := session(false)
	if err != nil {
		return err
	}

	var dst io.Writer = os.Stdout
	if strings.TrimSpace(*out) != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}

	info, err := client.Stream(context.Background(), *name, *byteRange, dst)
	if err != nil {
		return err
	}
	if dst != os.Stdout {
		fmt.Printf("%d bytes (%s) %s\n", info.Bytes, info.ContentType, info.ContentRange)
	}
	return nil
}

func commandPlaylist(args []string) error {
	if len(args) == 0 {
		return errors.New("playlist subcommand required (list|create|show|add|remove|delete)")
	}
	switch args[0] {
	case "list":
		return playlistList()
	case "create":
		return playlistCreate(args[1:])
	case "show":
		return playlistShow(args[1:])
	case "add":
		return playlistEntry(args[1:], true)
	case "remove":
		return playlistEntry(args[1:], false)
	case "delete":
		return playlistDelete(args[1:])
	default:
		return fmt.Errorf("unknown playlist subcommand: %s", args[0])
	}
}

func playlistList() error {
	client, token, err := session(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	playlists, err := client.ListPlaylists(ctx, token)
	if err != nil {
		return err
	}
	for _, p := range playlists {
		fmt.Printf("%s\t%s\t%d songs\n", p.ID, p.PlaylistName, len(p.Songs))
	}
	return nil
}

func playlistCreate(args []string) error {
	fs := flag.NewFlagSet("playlist create", flag.ExitOnError)
	name := fs.String("name", "", "Playlist name")
	fs.Parse(args)

	client, token, err := session(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	p, err := client.CreatePlaylist(ctx, token, *name)
	if err != nil {
		return err
	}
	fmt.Printf("playlist created: %s\n", p.ID)
	return nil
}

func playlistShow(args []string) error {
	fs := flag.NewFlagSet("playlist show", flag.ExitOnError)
	id := fs.String("playlist", "", "Playlist identifier")
	fs.Parse(args)

	if strings.TrimSpace(*id) == "" {
		return errors.New("--playlist is required")
	}
	client, token, err := session(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	p, err := client.GetPlaylist(ctx, token, *id)
	if err != nil {
		return err
	}
	printPlaylist(p)
	return nil
}

func playlistEntry(args []string, add bool) error {
	fs := flag.NewFlagSet("playlist entry", flag.ExitOnError)
	id := fs.String("playlist", "", "Playlist identifier")
	songID := fs.String("song", "", "Song identifier")
	fs.Parse(args)

	if strings.TrimSpace(*id) == "" || strings.TrimSpace(*songID) == "" {
		return errors.New("--playlist and --song are required")
	}
	client, token, err := session(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var p apiclient.Playlist
	if add {
		p, err = client.AddToPlaylist(ctx, token, *id, *songID)
	} else {
		p, err = client.RemoveFromPlaylist(ctx, token, *id, *songID)
	}
	if err != nil {
		return err
	}
	printPlaylist(p)
	return nil
}

func playlistDelete(args []string) error {
	fs := flag.NewFlagSet("playlist delete", flag.ExitOnError)
	id := fs.String("playlist", "", "Playlist identifier")
	fs.Parse(args)

	if strings.TrimSpace(*id) == "" {
		return errors.New("--playlist is required")
	}
	client, token, err := session(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.DeletePlaylist(ctx, token, *id); err != nil {
		return err
	}
	fmt.Println("playlist deleted")
	return nil
}

func printPlaylist(p apiclient.Playlist) {
	fmt.Printf("%s\t%s\n", p.ID, p.PlaylistName)
	for i, e := range p.Songs {
		fmt.Printf("  %d. %s\t%s\t%s\n", i+1, e.SongID, e.Title, e.ArtistName)
	}
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: "http://localhost:4000"}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:4000"
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "tunectl", "config.json"), nil
}

func printUsage() {
	fmt.Printf("tunectl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	tunectl login --email user@example.com [--password secret] [--api http://localhost:4000]
	tunectl register --name "Full Name" --email user@example.com [--password secret]
	tunectl songs [--id <song-id>]
	tunectl upload --file track.mp3 --title T --artist A --album B --description D
	tunectl edit --id <song-id> [--title T] [--artist A] [--album B] [--description D]
	tunectl delete --id <song-id>
	tunectl purge --id <song-id>
	tunectl stream --song <stored-file> [--out file] [--range bytes=0-1023]
	tunectl playlist list
	tunectl playlist create --name <name>
	tunectl playlist show --playlist <playlist-id>
	tunectl playlist add|remove --playlist <playlist-id> --song <song-id>
	tunectl playlist delete --playlist <playlist-id>
	tunectl version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
