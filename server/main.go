package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	"track-duel/server/rank"
	"track-duel/server/store"
)

//
// ===== pretty printing =====
//

var useColor bool

const (
	colReset = "\033[0m"
	colBold  = "\033[1m"
	colDim   = "\033[2m"
	colGreen = "\033[32m"
	colRed   = "\033[31m"
	colBlue  = "\033[34m"
	colCyan  = "\033[36m"
)

func c(code, s string) string {
	if !useColor {
		return s
	}
	return code + s + colReset
}
func bold(s string) string { return c(colBold, s) }
func dim(s string) string  { return c(colDim, s) }
func good(s string) string { return c(colGreen, s) }
func bad(s string) string  { return c(colRed, s) }
func cyan(s string) string { return c(colCyan, s) }
func blue(s string) string { return c(colBlue, s) }

func scoreTag(it rank.Item) string {
	if it.Score == nil {
		return dim("unrated")
	}
	return dim(fmt.Sprintf("%.2f after %d ratings", *it.Score, it.RatingCount))
}

func printTrack(side string, it rank.Item) {
	fmt.Printf("  %s %s — %s\n", bold(side), blue(it.Title), cyan(it.Artist))
	if it.Album != "" {
		fmt.Printf("      %s\n", dim(it.Album))
	}
	fmt.Printf("      %s\n", scoreTag(it))
}

//
// ===== bootstrap =====
//

func mustEnv(keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			log.Fatalf("Missing required env var %s. Put it in .env (dev) or set it on the host (prod).", k)
		}
	}
}
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
func atofDef(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

var stopFlag atomic.Bool

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	useColor = (os.Getenv("NO_COLOR") == "") && (strings.TrimSpace(os.Getenv("USE_COLOR")) != "0")

	var migrate, serve bool
	var seedPath string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--migrate":
			migrate = true
		case "--serve":
			serve = true
		case "--seed":
			if i+1 >= len(args) {
				log.Fatal("--seed needs a CSV path")
			}
			i++
			seedPath = args[i]
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel)

	var deadline time.Time
	if maxSeconds := atoiDef(os.Getenv("MAX_SECONDS"), 0); maxSeconds > 0 {
		deadline = time.Now().Add(time.Duration(maxSeconds) * time.Second)
	}
	checkStop := func() bool {
		select {
		case <-ctx.Done():
			stopFlag.Store(true)
		default:
		}
		if stopFlag.Load() {
			return true
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			stopFlag.Store(true)
			return true
		}
		return false
	}

	mustEnv("DATABASE_URL")
	db, err := store.Open(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close(context.Background())

	if migrate || asBool(os.Getenv("AUTO_MIGRATE")) {
		if err := store.Migrate(ctx, db); err != nil {
			log.Fatal(err)
		}
		log.Println("migrated")
		if migrate && seedPath == "" {
			return
		}
	}

	if seedPath != "" {
		n, err := seedFromCSV(ctx, db, seedPath)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("seeded %d tracks from %s", n, seedPath)
		return
	}

	strategy := getenv("STRATEGY", "bisect")
	opts := optionsFromEnv()
	if strategy == "pool" {
		ids, err := buildPool(ctx, db, opts)
		if err != nil {
			log.Fatal(err)
		}
		opts.PoolIDs = ids
	}

	sess, err := NewSession(db, strategy, opts)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("session %s, strategy %s", sess.ID, sess.Strategy())

	if serve {
		port := getenv("PORT", "8080")
		r := Router(db, sess)
		srv := &http.Server{Addr: ":" + port, Handler: r, ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}
		log.Printf("listening on http://localhost:%s (Ctrl+C to stop)", port)
		log.Fatal(srv.ListenAndServe())
	}

	runTerminal(ctx, checkStop, sess)
}

func watchSignals(cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	<-ch
	stopFlag.Store(true)
	cancel()
}

// optionsFromEnv maps the tunables onto rank.Options. Anything unset keeps
// the engine defaults.
func optionsFromEnv() rank.Options {
	opts := rank.Options{
		StreakCap: atoiDef(os.Getenv("STREAK_CAP"), 0),
		EloK:      atofDef(os.Getenv("ELO_K"), 0),
		BisectTop: asBool(os.Getenv("BISECT_TOP")),
	}
	if s := os.Getenv("STALENESS_SECONDS"); s != "" {
		opts.Staleness = time.Duration(atoiDef(s, 0)) * time.Second
	}
	if s := os.Getenv("MIN_SCORE"); s != "" {
		v := atofDef(s, 0)
		opts.MinScore = &v
	}
	if s := os.Getenv("MAX_SCORE"); s != "" {
		v := atofDef(s, 0)
		opts.MaxScore = &v
	}
	return opts
}

// buildPool samples the fixed candidate set for the pool strategy.
func buildPool(ctx context.Context, db *store.DB, opts rank.Options) ([]int64, error) {
	size := atoiDef(os.Getenv("POOL_SIZE"), 50)
	items, err := db.Items(ctx, rank.Query{
		Order:    rank.OrderRandom,
		Limit:    size,
		MinScore: opts.MinScore,
		MaxScore: opts.MaxScore,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids, nil
}

// seedFromCSV bulk-loads tracks from rows of title,artist,album.
func seedFromCSV(ctx context.Context, db *store.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	n := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		title := strings.TrimSpace(rec[0])
		var artist, album string
		if len(rec) > 1 {
			artist = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 {
			album = strings.TrimSpace(rec[2])
		}
		if _, err := db.SeedTrack(ctx, title, artist, album); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

//
// ===== terminal session =====
//

func runTerminal(ctx context.Context, checkStop func() bool, sess *Session) {
	in := bufio.NewReader(os.Stdin)
	fmt.Printf("%s\n", bold("track-duel — which one is better?"))
	fmt.Printf("%s\n", dim("[a] left  [b] right  [d] draw  [s] skip  [q] quit"))

	for {
		if checkStop() {
			break
		}
		left, right, err := sess.NextPair(ctx)
		if err != nil {
			log.Printf("next pair: %v", err)
			break
		}
		if left == nil || right == nil {
			fmt.Printf("\n%s\n", bold("No more pairs to rate — session over."))
			break
		}

		fmt.Println()
		printTrack("[a]", *left)
		printTrack("[b]", *right)
		fmt.Print(bold("> "))

		line, err := in.ReadString('\n')
		if err != nil {
			break
		}

		var outcome rank.Outcome
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "a":
			outcome = rank.Win
		case "b":
			outcome = rank.Lose
		case "d":
			outcome = rank.Draw
		case "s":
			sess.Skip()
			continue
		case "q":
			stopFlag.Store(true)
			continue
		default:
			fmt.Println(dim("a, b, d, s or q"))
			continue
		}
		if err := sess.Rate(ctx, outcome); err != nil {
			log.Printf("rate: %v", err)
			break
		}
		switch outcome {
		case rank.Win:
			fmt.Printf("%s\n", good(fmt.Sprintf("%s wins", left.Title)))
		case rank.Lose:
			fmt.Printf("%s\n", good(fmt.Sprintf("%s wins", right.Title)))
		default:
			fmt.Printf("%s\n", dim("draw"))
		}
	}

	fmt.Printf("\n%s %d rounds, %d draws in %s\n",
		bold("Session done:"), sess.Rounds, sess.Draws, time.Since(sess.Started).Round(time.Second))
}
