// Package main provides the entry point for the lector CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lectorapp/lector/internal/cache"
	"github.com/lectorapp/lector/playback"
	"github.com/lectorapp/lector/playback/engines/mock"
	"github.com/lectorapp/lector/playback/poll"
	"github.com/lectorapp/lector/playback/segment"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool
	walk       bool
	rateFlag   float64

	keywordStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"})
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})
	titleStyle    = lipgloss.NewStyle().Bold(true)
	chapterIdxCol = lipgloss.NewStyle().Width(4).Align(lipgloss.Right)

	rootCmd = &cobra.Command{
		Use:   "lector [FILE]",
		Short: "Read documents aloud, chapter by chapter",
		Long: fmt.Sprintf(
			"\nSegment a document into chapters and drive %s playback over it.",
			keyword("position-synchronized"),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		RunE:          execute,
	}
)

func keyword(s string) string {
	return keywordStyle.Render(s)
}

func subtle(s string) string {
	return subtleStyle.Render(s)
}

// readSource reads document text from a file argument or stdin.
func readSource(arg string) (playback.Document, error) {
	if arg == "" || arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return playback.Document{}, fmt.Errorf("reading stdin: %w", err)
		}
		return playback.Document{ID: "stdin", Title: "stdin", Text: string(data)}, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return playback.Document{}, fmt.Errorf("unable to open file: %w", err)
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		abs = arg
	}
	title := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
	return playback.Document{ID: abs, Title: title, Text: string(data)}, nil
}

// segmenterFor picks the markdown-aware path for markdown files and
// the plain-text heuristics for everything else.
func segmenterFor(id string, cfg playback.Config) playback.Segmenter {
	s := segment.New(cfg)
	switch strings.ToLower(filepath.Ext(id)) {
	case ".md", ".markdown":
		return segment.Markdown{Segmenter: s}
	}
	return s
}

func execute(_ *cobra.Command, args []string) error {
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := playback.LoadConfigFromViper()
	if err != nil {
		return err
	}
	if rateFlag != 0 {
		cfg.Rate = rateFlag
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	doc, err := readSource(arg)
	if err != nil {
		return err
	}

	engine := mock.New()
	session := playback.NewSession(engine, &playback.StaticLoader{}, segmenterFor(doc.ID, cfg), cfg, log.Default())
	defer session.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.LoadDocument(ctx, doc, func(p float64, msg string) {
		log.Debug("loading", "progress", p, "message", msg)
	}); err != nil {
		return err
	}

	// Tuning edits take effect without a restart; only the rate
	// matters for a running session.
	playback.WatchConfig(func(c playback.Config) {
		if err := session.SetRate(c.Rate); err != nil {
			log.Error("could not apply new rate", "err", err)
		}
	})

	chapters := session.Chapters()
	printChapters(doc, chapters)

	if len(chapters) > 0 {
		printPreview(session)
	}

	if walk {
		return walkChapters(ctx, session, chapters, cfg)
	}
	return nil
}

func printChapters(doc playback.Document, chapters []playback.Chapter) {
	total := len([]rune(doc.Text))
	fmt.Println(titleStyle.Render(doc.Title), subtle(fmt.Sprintf("(%s characters)", humanize.Comma(int64(total)))))

	if len(chapters) == 0 {
		fmt.Println(subtle("no chapters found, navigation is by global position only"))
		return
	}

	for i, ch := range chapters {
		title := truncate.StringWithTail(ch.Title, 48, "…")
		share := (ch.EndPosition - ch.StartPosition) * 100
		fmt.Printf("%s  %s %s\n",
			chapterIdxCol.Render(fmt.Sprintf("%d", i)),
			title,
			subtle(fmt.Sprintf("%s chars, %.1f%%", humanize.Comma(int64(ch.Length())), share)),
		)
	}
}

// printPreview renders the current chapter's opening through the
// display cache.
func printPreview(session *playback.Session) {
	display, err := cache.NewDisplay(1<<20, func(chapter, hlStart, hlLen int) string {
		text := []rune(session.ChapterText(chapter))
		if len(text) > 200 {
			text = text[:200]
		}
		return string(text)
	})
	if err != nil {
		log.Error("display cache unavailable", "err", err)
		return
	}

	snap := session.Snapshot()
	preview := display.Text(snap.ChapterIndex, snap.HighlightStart, snap.HighlightLength)
	fmt.Println()
	fmt.Println(subtle(strings.TrimSpace(preview)))
}

// walkChapters steps through every chapter with the mock engine
// playing, publishing transitions through the polling scheduler.
func walkChapters(ctx context.Context, session *playback.Session, chapters []playback.Chapter, cfg playback.Config) error {
	if len(chapters) == 0 {
		return errors.New("cannot walk an unsegmented document")
	}

	scheduler := poll.NewScheduler(session, cfg.PollInterval, log.Default())
	scheduler.OnChapterChange(func(ev poll.Event) {
		fmt.Printf("%s %s\n", keyword("→"), ev.Title)
	})
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if err := session.Play(); err != nil {
		return err
	}
	for i := 1; i < len(chapters); i++ {
		time.Sleep(2 * cfg.PollInterval)
		session.NextChapter()
	}
	time.Sleep(2 * cfg.PollInterval)
	return session.Stop()
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		scope := gap.NewScope(gap.User, "lector")
		dirs, err := scope.ConfigDirs()
		if err != nil {
			log.Fatal("could not determine config directories", "err", err)
		}
		viper.SetConfigName("lector")
		viper.SetConfigType("yaml")
		for _, dir := range dirs {
			viper.AddConfigPath(dir)
		}
	}

	viper.SetEnvPrefix("lector")
	viper.AutomaticEnv()
	playback.SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Error("could not read config", "err", err)
		}
	}
	log.Debug("using config", "file", viper.ConfigFileUsed())
}

func init() {
	cobra.OnInitialize(initConfig)

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: lector.yml in the app config path)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&walk, "walk", false, "step through every chapter with the mock engine")
	rootCmd.Flags().Float64VarP(&rateFlag, "rate", "r", 0, "speech rate multiplier")

	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
