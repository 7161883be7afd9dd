package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/harliandi/go-batchcrop/internal/batch"
)

// progressPrinter renders batch progress. On a terminal it redraws a single
// status line; otherwise it prints one line per event.
type progressPrinter struct {
	w    io.Writer
	live bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	live := false
	if f, ok := w.(*os.File); ok {
		live = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &progressPrinter{w: w, live: live}
}

// Print renders one progress event.
func (p *progressPrinter) Print(ev batch.Progress) {
	var line string
	switch ev.Stage {
	case batch.StageInitializing:
		line = fmt.Sprintf("Initializing %d images", ev.Total)
	case batch.StageTransforming:
		line = fmt.Sprintf("[%d/%d] Processing %s", ev.Index+1, ev.Total, ev.Name)
	case batch.StageItemFailed:
		// Failures always get their own line so they stay visible.
		p.clear()
		fmt.Fprintf(p.w, "[%d/%d] Failed %s: %v\n", ev.Index+1, ev.Total, ev.Name, errCause(ev.Err))
		return
	case batch.StagePackaging:
		line = "Creating ZIP file..."
	case batch.StageCompleted:
		p.clear()
		fmt.Fprintln(p.w, "Processing complete")
		return
	default:
		line = string(ev.Stage)
	}

	if p.live {
		fmt.Fprintf(p.w, "\r\033[K%s", line)
		return
	}
	fmt.Fprintln(p.w, line)
}

func (p *progressPrinter) clear() {
	if p.live {
		fmt.Fprint(p.w, "\r\033[K")
	}
}

// errCause strips the item prefix the line already shows
func errCause(err error) error {
	var ierr *batch.ItemError
	if errors.As(err, &ierr) {
		return ierr.Err
	}
	return err
}
