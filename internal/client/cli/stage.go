package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/client/pricing"
	"github.com/dmitrijs2005/udinflow/internal/filex"
	"github.com/google/uuid"
)

var errNoStaged = errors.New("no files staged, use 'add <path>'")

// Add validates each path and stages the accepted files. Rejected files are
// reported and skipped.
func (a *App) Add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: add <path> [path...]")
	}

	limits := a.config.Limits()
	var added []*models.StagedFile
	for _, path := range args {
		f, err := filex.Normalize(filex.NativeHandle{Path: path})
		if err != nil {
			fmt.Fprintf(a.out, "Rejected %s: %v\n", path, err)
			continue
		}
		if err := filex.Validate(f, limits); err != nil {
			fmt.Fprintf(a.out, "Rejected %s: %v\n", f.Name, err)
			continue
		}
		added = append(added, &models.StagedFile{
			ID:      uuid.NewString(),
			Name:    f.Name,
			Size:    f.Size(),
			Type:    f.Type,
			Status:  models.FileStatusStaged,
			AddedAt: a.now(),
			Source:  f,
		})
	}
	if len(added) == 0 {
		return nil
	}

	a.mu.Lock()
	a.files = append(a.files, added...)
	a.mu.Unlock()
	a.persist(ctx)

	fmt.Fprintf(a.out, "Staged %d file(s). Use 'classify <n> <type>' to set document types.\n", len(added))
	return nil
}

func (a *App) List(ctx context.Context, args []string) error {
	files := a.snapshot()
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files staged.")
		return nil
	}
	a.printFiles(files)
	return nil
}

func (a *App) printFiles(files []*models.StagedFile) {
	for i, f := range files {
		docType := "unclassified"
		if f.Classified() {
			docType = f.DocumentType
			if e, ok := a.deps.Catalog.Lookup(f.DocumentType); ok {
				docType = e.Name
			}
		}
		fmt.Fprintf(a.out, "%3d. %-40s %10s  %s\n", i+1, f.Name, humanSize(f.Size), docType)
	}
}

func (a *App) Categories(ctx context.Context, args []string) error {
	c := a.deps.Catalog
	for _, cat := range c.Categories {
		fmt.Fprintf(a.out, "%s\n", cat.Name)
		for _, d := range cat.Documents {
			fmt.Fprintf(a.out, "  %-45s %-45s %s %d\n", d.Key, d.Name, c.Currency, d.Price)
		}
	}
	fmt.Fprintf(a.out, "Prices exclude GST (%d%%).\n", c.GSTPercentage)
	return nil
}

func (a *App) Classify(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: classify <n> <type>, see 'categories'")
	}
	entry, ok := a.deps.Catalog.Lookup(args[1])
	if !ok {
		return fmt.Errorf("unknown document type %q, see 'categories'", args[1])
	}

	a.mu.Lock()
	idx, err := fileIndex(args[0], len(a.files))
	if err != nil {
		a.mu.Unlock()
		return err
	}
	f := a.files[idx]
	f.DocumentType = entry.Key
	a.mu.Unlock()

	a.persist(ctx)
	fmt.Fprintf(a.out, "%s: %s\n", f.Name, entry.Name)
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: remove <n>")
	}

	a.mu.Lock()
	idx, err := fileIndex(args[0], len(a.files))
	if err != nil {
		a.mu.Unlock()
		return err
	}
	f := a.files[idx]
	a.files = append(a.files[:idx:idx], a.files[idx+1:]...)
	durable := a.durable
	a.mu.Unlock()

	if durable {
		if err := a.deps.Stage.RemoveOne(ctx, f.ID); err != nil {
			a.log.Warn(ctx, "could not remove staged file", "id", f.ID, "error", err)
		}
	} else {
		a.persist(ctx)
	}
	fmt.Fprintf(a.out, "Removed %s.\n", f.Name)
	return nil
}

func (a *App) Reset(ctx context.Context, args []string) error {
	a.mu.Lock()
	a.files = nil
	a.mu.Unlock()

	if err := a.deps.Stage.ClearAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All staged files cleared.")
	return nil
}

func (a *App) Price(ctx context.Context, args []string) error {
	files := a.snapshot()
	if len(files) == 0 {
		return errNoStaged
	}
	b, err := a.deps.Checkout.Quote(files)
	if errors.Is(err, pricing.ErrUnclassified) {
		return errors.New("every file needs a document type first, see 'list' and 'classify'")
	}
	if err != nil {
		return err
	}
	a.printBreakdown(b)
	return nil
}

func (a *App) printBreakdown(b *pricing.Breakdown) {
	for i, it := range b.Items {
		fmt.Fprintf(a.out, "%3d. %-45s %s %8d\n", i+1, it.Name, b.Currency, it.Price)
	}
	fmt.Fprintf(a.out, "     %-45s %s %8d\n", "Subtotal", b.Currency, b.Subtotal)
	fmt.Fprintf(a.out, "     %-45s %s %8d\n", fmt.Sprintf("GST (%d%%)", b.GSTPercentage), b.Currency, b.GST)
	fmt.Fprintf(a.out, "     %-45s %s %8d\n", "Total", b.Currency, b.Total)
}

// fileIndex parses a 1-based file number.
func fileIndex(arg string, n int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("no file number %s, see 'list'", arg)
	}
	return i - 1, nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
