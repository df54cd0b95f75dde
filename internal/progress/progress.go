// Package progress shows sync progress on a terminal.
package progress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/klauern/docsync/internal/logging"
	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/ui"
)

// Bar is a sync observer that renders one step per pair. It falls back to
// debug logging when output is not an interactive terminal.
type Bar struct {
	bar     *progressbar.ProgressBar
	out     io.Writer
	enabled bool
	desc    string
	failed  int
}

// Options configures the progress bar behavior.
type Options struct {
	// Description is the prefix text shown before the bar.
	Description string
	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer
	// Force shows the bar even when Writer is not a terminal.
	Force bool
}

// New creates a bar. The total is learned from the first PairStarted call.
// The bar is only shown if:
//   - Colors are enabled (respects NO_COLOR and --no-color)
//   - Output is a terminal
//   - Not in debug mode (to avoid interfering with logs)
func New(opts Options) *Bar {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	if opts.Description == "" {
		opts.Description = "Syncing"
	}
	return &Bar{
		out:     opts.Writer,
		enabled: opts.Force || shouldShowProgress(opts.Writer),
		desc:    opts.Description,
	}
}

// PairStarted implements sync.Observer.
func (b *Bar) PairStarted(pair model.SyncPair, index, total int) {
	if !b.enabled {
		logging.Debug("pair started", logging.Path(pair.LocalPath), slog.Int("index", index), slog.Int("total", total))
		return
	}
	if b.bar == nil {
		b.bar = b.newBar(total)
	}
	b.bar.Describe(fmt.Sprintf("%s %s", b.desc, pair.LocalPath))
}

// PairFinished implements sync.Observer.
func (b *Bar) PairFinished(res model.SyncResult) {
	if !res.Success {
		b.failed++
	}
	if !b.enabled || b.bar == nil {
		return
	}
	_ = b.bar.Add(1)
}

// Failed returns how many pairs finished unsuccessfully.
func (b *Bar) Failed() int {
	return b.failed
}

// Finish completes the bar.
func (b *Bar) Finish() error {
	if !b.enabled || b.bar == nil {
		logging.Debug(fmt.Sprintf("%s completed", b.desc), slog.Int("failed", b.failed))
		return nil
	}
	return b.bar.Finish()
}

func (b *Bar) newBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(b.desc),
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(b.out, "\n")
		}),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
	)
}

// shouldShowProgress determines if progress bars should be displayed.
func shouldShowProgress(w io.Writer) bool {
	if !ui.IsColorEnabled() {
		return false
	}

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}

	// Debug logs would interleave with the bar.
	return !logging.Default().Enabled(context.Background(), logging.LevelDebug)
}
