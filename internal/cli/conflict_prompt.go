package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/report"
	"github.com/klauern/docsync/internal/sync"
	"github.com/klauern/docsync/internal/ui"
	"github.com/klauern/docsync/internal/ui/tui"
)

// LinePrompter asks about conflicts with a numbered menu on a line-based
// reader. It is used when the terminal cannot host the full-screen chooser.
type LinePrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewLinePrompter creates a prompter reading choices from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Choose implements sync.Prompter. End of input skips the conflict.
func (lp *LinePrompter) Choose(ctx context.Context, info *model.ConflictInfo) (model.Resolution, error) {
	fmt.Fprintln(lp.out)
	fmt.Fprintln(lp.out, ui.Header("=== Conflict Resolution ==="))
	fmt.Fprintln(lp.out, report.FormatConflictDiff(info))

	fmt.Fprintln(lp.out, "\nHow would you like to resolve this conflict?")
	fmt.Fprintln(lp.out, "  1. Keep local file (push it to the wiki)")
	fmt.Fprintln(lp.out, "  2. Keep wiki page (pull it over the local file)")
	fmt.Fprintln(lp.out, "  3. Skip for now")
	fmt.Fprintln(lp.out, "  4. Show full local content")
	fmt.Fprintln(lp.out, "  5. Show full wiki content")
	fmt.Fprint(lp.out, "\nEnter choice [1-5]: ")

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		response, readErr := lp.reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return "", fmt.Errorf("failed to read input: %w", readErr)
		}
		eof := readErr != nil

		choice, err := strconv.Atoi(strings.TrimSpace(response))
		if err != nil || choice < 1 || choice > 5 {
			if eof {
				fmt.Fprintln(lp.out)
				return model.ResolutionSkip, nil
			}
			fmt.Fprint(lp.out, "Invalid choice. Enter 1-5: ")
			continue
		}

		switch choice {
		case 1:
			return model.ResolutionLocal, nil
		case 2:
			return model.ResolutionRemote, nil
		case 3:
			return model.ResolutionSkip, nil
		case 4:
			lp.showFullContent("LOCAL", info.Local)
		case 5:
			lp.showFullContent("WIKI", info.Remote)
		}
		fmt.Fprint(lp.out, "\nEnter choice [1-5]: ")
	}
}

// showFullContent displays the full content of one side.
func (lp *LinePrompter) showFullContent(label, content string) {
	fmt.Fprintf(lp.out, "\n=== %s CONTENT ===\n", label)
	fmt.Fprintln(lp.out, strings.Repeat("-", 50))

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, line := range lines {
		fmt.Fprintf(lp.out, "%4d | %s\n", i+1, line)
	}

	fmt.Fprintln(lp.out, strings.Repeat("-", 50))
}

// newPrompter picks the full-screen chooser when both stdin and stdout are
// terminals, and the line prompter otherwise.
func newPrompter() sync.Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return tui.NewPrompter()
	}
	return NewLinePrompter(os.Stdin, os.Stderr)
}
