// Command seed-smartlink inserts a demo smart link with platform URLs so
// the tracking endpoint can be exercised locally.
//
// Usage:
//
//	go run ./scripts/seed-smartlink.go -title "Nouvel Album" -artist "MDMC" \
//	  -platform spotify=https://open.spotify.com/album/xyz \
//	  -platform deezer=https://deezer.com/album/123
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mdmc/smartlinks/internal/repository"
)

type platformFlag []string

func (p *platformFlag) String() string { return strings.Join(*p, ",") }

func (p *platformFlag) Set(value string) error {
	if !strings.Contains(value, "=") {
		return fmt.Errorf("platform must be service=url, got %q", value)
	}
	*p = append(*p, value)
	return nil
}

type output struct {
	SmartlinkID string            `json:"smartlink_id"`
	Slug        string            `json:"slug"`
	Platforms   map[string]string `json:"platforms"`
}

func main() {
	var platforms platformFlag
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		slug        = flag.String("slug", "", "Smart link slug (derived from title when empty)")
		title       = flag.String("title", "Demo Release", "Release title")
		artist      = flag.String("artist", "Demo Artist", "Artist name")
		tags        = flag.String("tags", "", "Comma-separated tags")
	)
	flag.Var(&platforms, "platform", "service=url pair (repeatable)")
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if len(platforms) == 0 {
		platforms = platformFlag{
			"spotify=https://open.spotify.com/album/demo",
			"deezer=https://deezer.com/album/demo",
			"youtube=https://youtube.com/watch?v=demo",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	id := newSmartlinkID()
	if *slug == "" {
		*slug = slugify(*title) + "-" + id[:6]
	}

	_, err = repo.Pool().Exec(ctx, `
		INSERT INTO smartlinks (id, slug, title, artist, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`, id, *slug, *title, *artist, splitTags(*tags))
	if err != nil {
		fmt.Fprintln(os.Stderr, "insert smartlink:", err)
		os.Exit(1)
	}

	out := output{SmartlinkID: id, Slug: *slug, Platforms: make(map[string]string)}
	for i, pair := range platforms {
		service, url, _ := strings.Cut(pair, "=")
		_, err = repo.Pool().Exec(ctx, `
			INSERT INTO smartlink_platforms (smartlink_id, service_name, display_name, url, position)
			VALUES ($1, $2, $3, $4, $5)
		`, id, service, displayName(service), url, i)
		if err != nil {
			fmt.Fprintln(os.Stderr, "insert platform:", err)
			os.Exit(1)
		}
		out.Platforms[service] = url
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

// displayName capitalizes a service name for the platform row.
func displayName(service string) string {
	if service == "" {
		return ""
	}
	return strings.ToUpper(service[:1]) + service[1:]
}

// newSmartlinkID generates a random 24-hex identifier.
func newSmartlinkID() string {
	var buf [12]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf[:])
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
