package notebook

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"briefcast/internal/config"
	"briefcast/internal/logging"
	"briefcast/internal/services"
	"briefcast/internal/sources"
)

const (
	defaultReplayTimeout = 2 * time.Minute
	defaultAudioTimeout  = 12 * time.Minute
)

var notebookURLPattern = regexp.MustCompile(`/notebook/([A-Za-z0-9_-]+)`)

// Replayer drives the notebook service headlessly by replaying a captured
// storage state. Every run launches a fresh browser and always tears it
// down, whatever path the automation takes.
type Replayer struct {
	origin        string
	replayTimeout time.Duration
	audioTimeout  time.Duration
	logger        *slog.Logger
}

// NewReplayer builds the production replay client from notebook settings.
func NewReplayer(cfg config.Notebook, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = logging.NewNop()
	}
	replayTimeout := time.Duration(cfg.ReplayTimeoutSeconds) * time.Second
	if replayTimeout <= 0 {
		replayTimeout = defaultReplayTimeout
	}
	audioTimeout := time.Duration(cfg.AudioTimeoutSeconds) * time.Second
	if audioTimeout <= 0 {
		audioTimeout = defaultAudioTimeout
	}
	return &Replayer{
		origin:        strings.TrimRight(cfg.Origin, "/"),
		replayTimeout: replayTimeout,
		audioTimeout:  audioTimeout,
		logger:        logging.WithComponent(logger, "notebook-replay"),
	}
}

// CreateNotebook creates a notebook, pastes every item as a text source,
// and returns the notebook id parsed from the page URL.
func (r *Replayer) CreateNotebook(ctx context.Context, session []byte, title string, items []sources.Item) (string, error) {
	var notebookID string
	err := r.withSession(ctx, session, func(page playwright.Page) error {
		if err := r.open(page, r.origin); err != nil {
			return err
		}
		if err := r.click(page, `button[aria-label="Create new notebook"], button:has-text("Create new")`); err != nil {
			return fmt.Errorf("create notebook button: %w", err)
		}
		if err := page.WaitForURL("**/notebook/**", playwright.PageWaitForURLOptions{
			Timeout: playwright.Float(r.timeoutMillis(r.replayTimeout)),
		}); err != nil {
			return fmt.Errorf("wait for notebook page: %w", err)
		}

		id, err := parseNotebookID(page.URL())
		if err != nil {
			return err
		}
		notebookID = id

		for i, source := range FormatItems(items) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.addTextSource(page, source); err != nil {
				return fmt.Errorf("add source %d %q: %w", i+1, source.Title, err)
			}
		}

		if err := r.renameNotebook(page, title); err != nil {
			return fmt.Errorf("rename notebook: %w", err)
		}
		r.logger.Info("notebook created",
			logging.String("notebook_id", notebookID),
			logging.Int("source_count", len(items)))
		return nil
	})
	if err != nil {
		return "", r.classify("create-notebook", err)
	}
	return notebookID, nil
}

// GenerateAudio opens the notebook, starts an audio overview, and waits
// until the player appears.
func (r *Replayer) GenerateAudio(ctx context.Context, session []byte, notebookID string) error {
	err := r.withSession(ctx, session, func(page playwright.Page) error {
		if err := r.open(page, r.origin+"/notebook/"+notebookID); err != nil {
			return err
		}
		if err := r.click(page, `button:has-text("Audio Overview"), button[aria-label="Audio Overview"]`); err != nil {
			return fmt.Errorf("open audio overview: %w", err)
		}
		if err := r.click(page, `button:has-text("Generate")`); err != nil {
			return fmt.Errorf("start generation: %w", err)
		}

		player := page.Locator(`audio, [aria-label="Play audio overview"], button[aria-label="Play"]`).First()
		if err := player.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(r.timeoutMillis(r.audioTimeout)),
		}); err != nil {
			return fmt.Errorf("wait for audio player: %w", err)
		}
		r.logger.Info("audio overview ready", logging.String("notebook_id", notebookID))
		return nil
	})
	if err != nil {
		return r.classify("generate-audio", err)
	}
	return nil
}

// withSession materializes the storage state to a private temp file, runs fn
// against a fresh headless page, and tears everything down afterwards.
func (r *Replayer) withSession(ctx context.Context, session []byte, fn func(page playwright.Page) error) error {
	if len(session) == 0 {
		return services.Wrap(services.ErrNotConnected, "notebook", "replay", "empty session", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "briefcast-replay-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	statePath := filepath.Join(dir, "state.json")
	if err := os.WriteFile(statePath, session, 0o600); err != nil {
		return fmt.Errorf("write storage state: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	defer func() { _ = pw.Stop() }()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		StorageStatePath: playwright.String(statePath),
	})
	if err != nil {
		return fmt.Errorf("restore session context: %w", err)
	}
	defer func() { _ = browserCtx.Close() }()

	page, err := browserCtx.NewPage()
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	return fn(page)
}

func (r *Replayer) open(page playwright.Page, target string) error {
	if _, err := page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(r.timeoutMillis(r.replayTimeout)),
	}); err != nil {
		return fmt.Errorf("navigate to %s: %w", target, err)
	}
	// A stale session bounces to the account login page instead of the app.
	if strings.Contains(page.URL(), "accounts.google.com") {
		return services.Wrap(services.ErrReplay, "notebook", "replay",
			"stored session expired, reconnect required", nil)
	}
	return nil
}

func (r *Replayer) addTextSource(page playwright.Page, source SourceText) error {
	if err := r.click(page, `button:has-text("Add source"), button[aria-label="Add source"]`); err != nil {
		return fmt.Errorf("open add source dialog: %w", err)
	}
	if err := r.click(page, `button:has-text("Copied text"), span:has-text("Paste text")`); err != nil {
		return fmt.Errorf("choose pasted text: %w", err)
	}
	textarea := page.Locator("textarea").First()
	if err := textarea.Fill(source.Body); err != nil {
		return fmt.Errorf("fill source text: %w", err)
	}
	if err := r.click(page, `button:has-text("Insert"), button:has-text("Add")`); err != nil {
		return fmt.Errorf("confirm source: %w", err)
	}
	return nil
}

func (r *Replayer) renameNotebook(page playwright.Page, title string) error {
	if err := r.click(page, `[aria-label="Notebook title"], .notebook-title`); err != nil {
		return err
	}
	input := page.Locator(`input[aria-label="Notebook title"], input.title-input`).First()
	if err := input.Fill(title); err != nil {
		return fmt.Errorf("fill title: %w", err)
	}
	if err := input.Press("Enter"); err != nil {
		return fmt.Errorf("commit title: %w", err)
	}
	return nil
}

func (r *Replayer) click(page playwright.Page, selector string) error {
	locator := page.Locator(selector).First()
	if err := locator.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(r.timeoutMillis(r.replayTimeout)),
	}); err != nil {
		return err
	}
	return locator.Click()
}

func (r *Replayer) timeoutMillis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

// classify folds automation failures into the replay error taxonomy while
// leaving already classified errors alone.
func (r *Replayer) classify(operation string, err error) error {
	if services.IsClassified(err) {
		return err
	}
	return services.Wrap(services.ErrReplay, "notebook", operation, "browser automation failed", err)
}

func parseNotebookID(pageURL string) (string, error) {
	match := notebookURLPattern.FindStringSubmatch(pageURL)
	if len(match) != 2 {
		return "", fmt.Errorf("no notebook id in url %q", pageURL)
	}
	return match[1], nil
}
