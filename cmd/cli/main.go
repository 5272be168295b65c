package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"moviehub/internal/notify"
	"moviehub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

func main() {
	global := flag.NewFlagSet("moviehub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "movie":
		handleMovie(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "library":
		handleLibrary(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "history":
		handleHistory(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "review":
		handleReview(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "events":
		handleEvents(*baseURL, *tokenPath, sub, args[2:])
	case "notify":
		handleNotify(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "chat":
		handleChat(*baseURL, *tokenPath, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "change-password":
		fs := flag.NewFlagSet("auth change-password", flag.ExitOnError)
		oldPassword := fs.String("old", "", "current password")
		newPassword := fs.String("new", "", "new password")
		_ = fs.Parse(args)

		if *oldPassword == "" || *newPassword == "" {
			log.Fatal("old and new passwords are required")
		}

		token := mustToken(tokenPath)
		payload := map[string]string{"old_password": *oldPassword, "new_password": *newPassword}
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/auth/change-password", token, payload, nil); err != nil {
			log.Fatalf("change password failed: %v", err)
		}
		// old tokens are invalid now, drop ours too
		_ = clearToken(tokenPath)
		fmt.Println("✅ password changed, please login again")
	case "logout":
		if token, err := readToken(tokenPath); err == nil && token != "" {
			// best effort: invalidate server-side tokens too
			if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/auth/logout", token, nil, nil); err != nil {
				log.Printf("server logout failed: %v", err)
			}
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: moviehub auth <login|register|change-password|logout>")
	}
}

func handleMovie(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("movie search", flag.ExitOnError)
		query := fs.String("q", "", "search query")
		page := fs.Int("page", 1, "result page")
		_ = fs.Parse(args)
		if *query == "" {
			log.Fatal("query is required")
		}

		u, err := url.Parse(baseURL + "/api/search")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("q", *query)
		qv.Set("page", fmt.Sprintf("%d", *page))
		u.RawQuery = qv.Encode()

		// send the token when we have one so custom movies are merged in
		token, _ := readToken(tokenPath)
		var resp models.SearchResult
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("movie show", flag.ExitOnError)
		id := fs.String("id", "", "movie id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("movie id is required")
		}

		token, _ := readToken(tokenPath)
		var resp models.EffectiveMovie
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/movies/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "add":
		fs := flag.NewFlagSet("movie add", flag.ExitOnError)
		title := fs.String("title", "", "title")
		year := fs.Int("year", 0, "release year")
		runtime := fs.Int("runtime", 0, "runtime in minutes")
		genres := fs.String("genres", "", "comma-separated genres")
		directors := fs.String("directors", "", "comma-separated directors")
		poster := fs.String("poster", "", "poster URL")
		_ = fs.Parse(args)
		if *title == "" {
			log.Fatal("title is required")
		}

		token := mustToken(tokenPath)
		payload := models.MovieDraft{
			Title:          *title,
			Year:           *year,
			RuntimeMinutes: *runtime,
			Genres:         splitList(*genres),
			Directors:      splitList(*directors),
			PosterURL:      *poster,
		}
		var resp models.EffectiveMovie
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/movies", token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "update":
		fs := flag.NewFlagSet("movie update", flag.ExitOnError)
		id := fs.String("id", "", "movie id")
		title := fs.String("title", "", "new title")
		year := fs.Int("year", 0, "new release year")
		runtime := fs.Int("runtime", 0, "new runtime in minutes")
		genres := fs.String("genres", "", "comma-separated genres")
		directors := fs.String("directors", "", "comma-separated directors")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("movie id is required")
		}

		patch := models.MoviePatch{}
		if *title != "" {
			patch.Title = title
		}
		if *year != 0 {
			patch.Year = year
		}
		if *runtime != 0 {
			patch.RuntimeMinutes = runtime
		}
		if *genres != "" {
			patch.Genres = splitList(*genres)
		}
		if *directors != "" {
			patch.Directors = splitList(*directors)
		}

		token := mustToken(tokenPath)
		var resp models.EffectiveMovie
		if err := doJSON(ctx, client, http.MethodPut, baseURL+"/api/movies/"+url.PathEscape(*id), token, patch, &resp); err != nil {
			log.Fatalf("update failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		fs := flag.NewFlagSet("movie delete", flag.ExitOnError)
		id := fs.String("id", "", "movie id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("movie id is required")
		}

		token := mustToken(tokenPath)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/api/movies/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: moviehub movie <search|show|add|update|delete>")
	}
}

func handleLibrary(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "list":
		fs := flag.NewFlagSet("library list", flag.ExitOnError)
		favorites := fs.Bool("favorites", false, "only favorites")
		_ = fs.Parse(args)

		endpoint := baseURL + "/api/library"
		if *favorites {
			endpoint += "?favorites=true"
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, endpoint, token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "favorite", "unfavorite":
		fs := flag.NewFlagSet("library "+sub, flag.ExitOnError)
		movieID := fs.String("movie-id", "", "movie id")
		_ = fs.Parse(args)
		if *movieID == "" {
			log.Fatal("movie-id is required")
		}

		payload := map[string]bool{"favorite": sub == "favorite"}
		var resp map[string]any
		endpoint := baseURL + "/api/library/" + url.PathEscape(*movieID) + "/favorite"
		if err := doJSON(ctx, client, http.MethodPut, endpoint, token, payload, &resp); err != nil {
			log.Fatalf("%s failed: %v", sub, err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: moviehub library <list|favorite|unfavorite>")
	}
}

func handleHistory(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "add":
		fs := flag.NewFlagSet("history add", flag.ExitOnError)
		movieID := fs.String("movie-id", "", "movie id")
		minutes := fs.Int("minutes", 0, "minutes watched")
		note := fs.String("note", "", "optional note")
		_ = fs.Parse(args)
		if *movieID == "" {
			log.Fatal("movie-id is required")
		}

		payload := map[string]any{
			"movie_id":        *movieID,
			"minutes_watched": *minutes,
			"note":            *note,
		}
		var resp models.WatchEvent
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/history", token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "list":
		fs := flag.NewFlagSet("history list", flag.ExitOnError)
		movieID := fs.String("movie-id", "", "optional movie filter")
		limit := fs.Int("limit", 50, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/api/history")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *movieID != "" {
			qv.Set("movie_id", *movieID)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: moviehub history <add|list>")
	}
}

func handleReview(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "add":
		fs := flag.NewFlagSet("review add", flag.ExitOnError)
		movieID := fs.String("movie-id", "", "movie id")
		rating := fs.Int("rating", 0, "rating 1-5")
		comment := fs.String("comment", "", "optional comment")
		_ = fs.Parse(args)
		if *movieID == "" {
			log.Fatal("movie-id is required")
		}

		token := mustToken(tokenPath)
		payload := map[string]any{"rating": *rating, "comment": *comment}
		var resp models.Review
		endpoint := baseURL + "/api/movies/" + url.PathEscape(*movieID) + "/reviews"
		if err := doJSON(ctx, client, http.MethodPost, endpoint, token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "list":
		fs := flag.NewFlagSet("review list", flag.ExitOnError)
		movieID := fs.String("movie-id", "", "movie id")
		_ = fs.Parse(args)
		if *movieID == "" {
			log.Fatal("movie-id is required")
		}

		var resp map[string]any
		endpoint := baseURL + "/api/movies/" + url.PathEscape(*movieID) + "/reviews"
		if err := doJSON(ctx, client, http.MethodGet, endpoint, "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		fs := flag.NewFlagSet("review delete", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("review id is required")
		}

		token := mustToken(tokenPath)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/api/reviews/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: moviehub review <add|list|delete>")
	}
}

func handleEvents(baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("events listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:9090", "TCP events feed address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runEventsTCP(*addr, *pretty); err != nil {
				log.Printf("[events] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "subscribe":
		fs := flag.NewFlagSet("events subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws/events on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws/events")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint, mustToken(tokenPath)); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: moviehub events <listen|subscribe>")
	}
}

func handleNotify(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "subscribe":
		fs := flag.NewFlagSet("notify subscribe", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:9999", "UDP notify server address")
		_ = fs.Parse(args)

		// the register datagram carries our user id
		token := mustToken(tokenPath)
		var me struct {
			ID string `json:"id"`
		}
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/users/me", token, nil, &me); err != nil {
			log.Fatalf("resolve user: %v", err)
		}

		if err := runNotifyUDP(*addr, me.ID); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: moviehub notify subscribe")
	}
}

func handleChat(baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "join":
		fs := flag.NewFlagSet("chat join", flag.ExitOnError)
		movieID := fs.String("movie-id", "", "movie room to join")
		_ = fs.Parse(args)
		if *movieID == "" {
			log.Fatal("movie-id is required")
		}

		endpoint, err := websocketURL(baseURL, "/ws/chat/"+url.PathEscape(*movieID))
		if err != nil {
			log.Fatalf("ws url: %v", err)
		}
		if err := runChatWS(endpoint, mustToken(tokenPath)); err != nil {
			log.Fatalf("chat join failed: %v", err)
		}
	default:
		log.Fatal("usage: moviehub chat join")
	}
}

func runEventsTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[events] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL, token string) error {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[events] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func runNotifyUDP(addr, userID string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	payload, err := json.Marshal(notify.RegisterMessage{
		Type:   notify.RegisterMessageType,
		UserID: userID,
	})
	if err != nil {
		return err
	}
	if _, err := conn.Write(payload); err != nil {
		return err
	}
	log.Printf("[notify] registered as %s at %s, waiting for refresh announcements", userID, addr)

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		fmt.Println(string(buf[:n]))
	}
}

func runChatWS(wsURL, token string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[chat] connected to %s (type to send, ctrl-d to leave)", wsURL)

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fmt.Println(string(msg))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := conn.WriteJSON(map[string]string{"text": text}); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.moviehub-token.json"
	}
	return filepath.Join(home, ".moviehub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("moviehub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|change-password|logout")
	fmt.Println("  movie search|show|add|update|delete")
	fmt.Println("  library list|favorite|unfavorite")
	fmt.Println("  history add|list")
	fmt.Println("  review add|list|delete")
	fmt.Println("  events listen|subscribe")
	fmt.Println("  notify subscribe")
	fmt.Println("  chat join")
}
