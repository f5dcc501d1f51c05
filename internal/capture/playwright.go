package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightBrowser opens a visible chromium window for the interactive
// login flow. The automation flag is disabled so the login provider treats
// the window as a regular browser.
type PlaywrightBrowser struct{}

// NewPlaywrightBrowser returns the production capture browser.
func NewPlaywrightBrowser() *PlaywrightBrowser {
	return &PlaywrightBrowser{}
}

func (b *PlaywrightBrowser) Open(ctx context.Context, origin string) (AutomationContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(false),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browserCtx, err := browser.NewContext()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browserCtx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if _, err := page.Goto(origin, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		_ = browserCtx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("navigate to %s: %w", origin, err)
	}
	return &playwrightContext{pw: pw, browser: browser, ctx: browserCtx}, nil
}

type playwrightContext struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
	closed  bool
}

func (p *playwrightContext) StorageState(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "briefcast-capture-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	statePath := filepath.Join(dir, "state.json")
	if _, err := p.ctx.StorageState(statePath); err != nil {
		return nil, fmt.Errorf("serialize storage state: %w", err)
	}
	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil, fmt.Errorf("read storage state: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("storage state is not valid json")
	}
	return data, nil
}

func (p *playwrightContext) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	_ = p.ctx.Close()
	_ = p.browser.Close()
	return p.pw.Stop()
}
