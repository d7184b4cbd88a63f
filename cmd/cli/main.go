package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/himanishpuri/MelodyMatch/pkg/config"
	"github.com/himanishpuri/MelodyMatch/pkg/logger"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/similarity"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/storage"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
	"github.com/himanishpuri/MelodyMatch/pkg/utils"
)

// Global flags
var (
	dbPath     string
	configPath string
	logLevel   string
)

func init() {
	// Global flags that can be used with any command
	flag.StringVar(&dbPath, "db", getEnvOrDefault("MELODY_DB_PATH", ""), "Path to the SQLite database file (overrides config)")
	flag.StringVar(&configPath, "config", os.Getenv("MELODY_CONFIG"), "Path to TOML config file")
	flag.StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "WARN"), "Log level (DEBUG, INFO, WARN, ERROR)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// loadConfig resolves the config file and applies the --db override.
func loadConfig() *config.Config {
	cfg, _, err := config.LoadConfigWithPriority(configPath)
	if err != nil {
		fail("Failed to load config", err)
	}
	if dbPath != "" {
		cfg.Catalog.DBPath = dbPath
	}
	return cfg
}

// createService creates a new MelodyMatch service from the resolved config
func createService() melodymatch.Service {
	opts, err := loadConfig().ServiceOptions()
	if err != nil {
		fail("Invalid configuration", err)
	}
	svc, err := melodymatch.NewService(append(opts, melodymatch.WithLogger(logger.GetLogger()))...)
	if err != nil {
		fail("Failed to create service", err)
	}
	return svc
}

func fail(msg string, err error) {
	fmt.Printf("❌ %s: %v\n", msg, err)
	logger.GetLogger().Errorf("%s: %v", msg, err)
	os.Exit(1)
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	log := logger.GetLogger()
	log.SetLevel(logger.ParseLevel(logLevel))

	if flag.NArg() < 1 {
		printBanner()
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	log.Infof("Executing command: %s", command)

	switch command {
	case "add":
		handleAdd(args)
	case "list":
		handleList()
	case "delete":
		handleDelete(args)
	case "search":
		handleSearch(args)
	case "range":
		handleRange(args)
	case "match":
		handleMatch(args)
	case "predict":
		handlePredict(args)
	case "similarity":
		handleSimilarity(args)
	case "import":
		handleImport(args)
	case "export":
		handleExport(args)
	case "stats":
		handleStats()
	case "init-config":
		handleInitConfig(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 __  __      _           _       __  __       _       _
|  \/  | ___| | ___   __| |_   _|  \/  | __ _| |_ ___| |__
| |\/| |/ _ \ |/ _ \ / _' | | | | |\/| |/ _' | __/ __| '_ \
| |  | |  __/ | (_) | (_| | |_| | |  | | (_| | || (__| | | |
|_|  |_|\___|_|\___/ \__,_|\__, |_|  |_|\__,_|\__\___|_| |_|
                           |___/
            Song Similarity CLI Tool
`
	fmt.Println(banner)
}

func handleAdd(args []string) {
	positional, flagArgs := splitArgs(args)

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	artist := addCmd.String("artist", "", "Artist name")
	featuresFlag := addCmd.String("features", "", "Comma-separated feature vector (required)")
	addCmd.Parse(flagArgs)

	if len(positional) != 1 || *featuresFlag == "" {
		fmt.Println("Usage: melodymatch add <name> --features <f1,f2,...> [--artist <artist>]")
		os.Exit(1)
	}

	features, err := parseFeatures(*featuresFlag)
	if err != nil {
		fail("Invalid features", err)
	}

	svc := createService()
	defer svc.Close()

	songID, err := svc.AddSong(context.Background(), positional[0], *artist, features)
	if err != nil {
		fail("Failed to add song", err)
	}

	fmt.Printf("\n✅ Successfully added song:\n")
	fmt.Printf("   ID:       %s\n", songID)
	fmt.Printf("   Name:     %s\n", positional[0])
	fmt.Printf("   Artist:   %s\n", *artist)
	fmt.Printf("   Features: %d\n", len(features))
}

func handleList() {
	svc := createService()
	defer svc.Close()

	songs, err := svc.ListSongs()
	if err != nil {
		fail("Failed to list songs", err)
	}

	if len(songs) == 0 {
		fmt.Println("\n📭 No songs in database")
		return
	}

	fmt.Printf("\n📚 Found %d song(s):\n\n", len(songs))
	printSongs(songs)
}

func printSongs(songs []models.Song) {
	for i, song := range songs {
		fmt.Printf("%d. \"%s\" by %s (ID: %s)\n", i+1, song.Name, song.Artist, song.ID)
		fmt.Printf("   Features: %v\n", song.Features)
	}
}

func printMatches(results []models.MatchResult) {
	for i, r := range results {
		fmt.Printf("%d. \"%s\" by %s\n", i+1, r.Name, r.Artist)
		fmt.Printf("   Similarity: %.4f | ID: %s\n", r.Similarity, r.SongID)
	}
}

func handleDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: melodymatch delete <song_id>")
		os.Exit(1)
	}
	songID := args[0]

	svc := createService()
	defer svc.Close()

	song, err := svc.GetSongByID(songID)
	if err != nil {
		fail("Song not found", err)
	}
	if err := svc.DeleteSong(songID); err != nil {
		fail("Failed to delete song", err)
	}

	fmt.Printf("\n✅ Successfully deleted song:\n")
	fmt.Printf("   ID:     %s\n", song.ID)
	fmt.Printf("   Name:   %s\n", song.Name)
	fmt.Printf("   Artist: %s\n", song.Artist)
}

func handleSearch(args []string) {
	positional, flagArgs := splitArgs(args)

	searchCmd := flag.NewFlagSet("search", flag.ExitOnError)
	limit := searchCmd.Int("limit", 0, "Maximum number of results (default from config)")
	exact := searchCmd.Bool("exact", false, "Match the whole name instead of a prefix")
	searchCmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Usage: melodymatch search <prefix> [--limit N] [--exact]")
		os.Exit(1)
	}

	svc := createService()
	defer svc.Close()

	var songs []models.Song
	if *exact {
		songs = svc.LookupByName(positional[0])
	} else {
		songs = svc.SearchByName(positional[0], svc.Defaults().ClampResults(*limit))
	}

	if len(songs) == 0 {
		fmt.Printf("\n❌ No songs match %q\n", positional[0])
		return
	}
	fmt.Printf("\n🔍 %d song(s) match %q:\n\n", len(songs), positional[0])
	printSongs(songs)
}

func handleRange(args []string) {
	rangeCmd := flag.NewFlagSet("range", flag.ExitOnError)
	minKey := rangeCmd.Float64("min", 0, "Lower key bound (inclusive)")
	maxKey := rangeCmd.Float64("max", 1, "Upper key bound (inclusive)")
	rangeCmd.Parse(args)

	svc := createService()
	defer svc.Close()

	songs := svc.SongsInRange(*minKey, *maxKey)
	fmt.Printf("\n📏 %d song(s) with keys in [%g, %g]:\n\n", len(songs), *minKey, *maxKey)
	printSongs(songs)
}

func handleMatch(args []string) {
	positional, flagArgs := splitArgs(args)

	matchCmd := flag.NewFlagSet("match", flag.ExitOnError)
	top := matchCmd.Int("top", 0, "Number of matches (default from config)")
	matchCmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Usage: melodymatch match <song_id> [--top N]")
		os.Exit(1)
	}

	svc := createService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	results, err := svc.MatchCatalog(ctx, positional[0], svc.Defaults().ClampTopK(*top))
	if err != nil {
		fail("Failed to match song", err)
	}
	if len(results) == 0 {
		fmt.Println("\n❌ No other songs in database")
		return
	}

	fmt.Printf("\n✅ Found %d match(es)!\n\n🎵 Top Matches:\n\n", len(results))
	printMatches(results)
}

func handlePredict(args []string) {
	positional, flagArgs := splitArgs(args)

	predictCmd := flag.NewFlagSet("predict", flag.ExitOnError)
	top := predictCmd.Int("top", 0, "Number of matches (default from config)")
	tolerance := predictCmd.Float64("tolerance", 0, "Key tolerance (default from config)")
	predictCmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Usage: melodymatch predict <song_id> [--tolerance T] [--top N]")
		os.Exit(1)
	}

	svc := createService()
	defer svc.Close()

	defaults := svc.Defaults()
	tol := *tolerance
	if tol == 0 {
		tol = defaults.Tolerance
	}

	p, err := svc.PredictSimilar(context.Background(), positional[0], tol, defaults.ClampTopK(*top))
	if err != nil {
		fail("Failed to predict similar songs", err)
	}

	fmt.Printf("\n🎯 %d candidate(s) within tolerance %g", p.Candidates, p.Tolerance)
	if p.Widened {
		fmt.Printf(" (widened from %g)", tol)
	}
	fmt.Println()
	fmt.Println()
	printMatches(p.Matches)
}

func handleSimilarity(args []string) {
	simCmd := flag.NewFlagSet("similarity", flag.ExitOnError)
	a := simCmd.String("a", "", "First feature vector")
	b := simCmd.String("b", "", "Second feature vector")
	simCmd.Parse(args)

	va, err := parseFeatures(*a)
	if err != nil {
		fail("Invalid --a", err)
	}
	vb, err := parseFeatures(*b)
	if err != nil {
		fail("Invalid --b", err)
	}

	sim, err := similarity.Cosine(va, vb)
	if err != nil {
		fail("Failed to compute similarity", err)
	}
	fmt.Printf("Cosine similarity: %.6f\n", sim)
}

func handleImport(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: melodymatch import <catalog.msgpack>")
		os.Exit(1)
	}

	f, err := os.Open(args[0])
	if err != nil {
		fail("Failed to open catalog", err)
	}
	defer f.Close()

	songs, err := storage.DecodeCatalog(f)
	if err != nil {
		fail("Failed to read catalog", err)
	}

	svc := createService()
	defer svc.Close()

	n, err := svc.ImportSongs(context.Background(), songs)
	if err != nil {
		fmt.Printf("⚠️  Imported %d of %d songs before failing\n", n, len(songs))
		fail("Import failed", err)
	}
	fmt.Printf("\n✅ Imported %d song(s) from %s\n", n, args[0])
}

func handleExport(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: melodymatch export <catalog.msgpack>")
		os.Exit(1)
	}

	svc := createService()
	defer svc.Close()

	if err := utils.WriteFileAtomic(args[0], svc.ExportCatalog); err != nil {
		fail("Failed to export catalog", err)
	}
	fmt.Printf("\n✅ Exported %d song(s) to %s\n", svc.Stats().Songs, args[0])
}

func handleStats() {
	svc := createService()
	defer svc.Close()

	st := svc.Stats()
	fmt.Println("\n📊 Catalog stats:")
	fmt.Printf("   Songs:         %d\n", st.Songs)
	fmt.Printf("   Dimension:     %d\n", st.Dimension)
	fmt.Printf("   Ordered index: %s\n", st.OrderedIndex)
	if st.IndexHeight > 0 {
		fmt.Printf("   Tree height:   %d\n", st.IndexHeight)
	}
	fmt.Printf("   Prefix index:  %s\n", st.PrefixIndex)
	fmt.Printf("   Build time:    %s\n", st.BuildDuration)
}

func handleInitConfig(args []string) {
	path := config.DefaultConfigFile
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		fail("Refusing to overwrite config", fmt.Errorf("%s already exists", path))
	}
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		fail("Failed to write config", err)
	}
	fmt.Printf("✅ Wrote default config to %s\n", path)
}

func printUsage() {
	fmt.Println("MelodyMatch - Song Similarity CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>         Path to SQLite database (env: MELODY_DB_PATH, default from config)")
	fmt.Println("  --config <path>     TOML config file (env: MELODY_CONFIG, default: ./melodymatch.toml)")
	fmt.Println("  --log-level <lvl>   Log level (env: LOG_LEVEL, default: WARN)")
	fmt.Println("\nUsage:")
	fmt.Println("  melodymatch [global-options] add <name> --features <f1,f2,...> [--artist <artist>]")
	fmt.Println("  melodymatch [global-options] list")
	fmt.Println("  melodymatch [global-options] delete <song_id>")
	fmt.Println("  melodymatch [global-options] search <prefix> [--limit N] [--exact]")
	fmt.Println("  melodymatch [global-options] range --min <key> --max <key>")
	fmt.Println("  melodymatch [global-options] match <song_id> [--top N]")
	fmt.Println("  melodymatch [global-options] predict <song_id> [--tolerance T] [--top N]")
	fmt.Println("  melodymatch similarity --a <f1,f2,...> --b <f1,f2,...>")
	fmt.Println("  melodymatch [global-options] import <catalog.msgpack>")
	fmt.Println("  melodymatch [global-options] export <catalog.msgpack>")
	fmt.Println("  melodymatch [global-options] stats")
	fmt.Println("  melodymatch init-config [path]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Add a song")
	fmt.Println("  melodymatch add \"Blue in Green\" --artist \"Miles Davis\" --features 0.12,0.80,0.33")
	fmt.Println()
	fmt.Println("  # Five most similar songs")
	fmt.Println("  melodymatch match 3f1c2a9e-... --top 5")
	fmt.Println()
	fmt.Println("  # Songs near a song's first feature, widening if too few are found")
	fmt.Println("  melodymatch --db mydb.sqlite3 predict 3f1c2a9e-... --tolerance 0.05")
}
