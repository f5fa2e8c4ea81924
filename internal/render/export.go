package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kozaktomas/photo-pages/internal/layout"
)

func init() {
	// pdfcpu would otherwise create a config directory in the user's home.
	pdfapi.DisableConfigDir()
}

// Export renders pages into outPath. The document is written to a temporary
// file next to outPath, checked with pdfcpu and renamed into place, so outPath
// either holds a complete document or is left untouched.
func (r *Renderer) Export(ctx context.Context, pages []layout.Page, cfg layout.Config, outPath string) (*Report, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: create export directory: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %w", ErrWrite, err)
	}
	tmpPath := tmp.Name()
	finalized := false
	defer func() {
		if !finalized {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	report, err := r.Render(ctx, pages, cfg, tmp)
	if err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("%w: sync: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: close: %w", ErrWrite, err)
	}

	if err := verifyDocument(tmpPath, report.PageCount); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, fmt.Errorf("%w: finalize: %w", ErrWrite, err)
	}
	finalized = true

	report.FileName = filepath.Base(outPath)
	return report, nil
}

// verifyDocument parses and validates the written file and checks its page count.
func verifyDocument(path string, wantPages int) error {
	f, err := os.Open(path) //nolint:gosec // temp file created above
	if err != nil {
		return fmt.Errorf("%w: reopen: %w", ErrWrite, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pdfCtx, err := pdfapi.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return fmt.Errorf("%w: validate: %w", ErrWrite, err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return fmt.Errorf("%w: page count: %w", ErrWrite, err)
	}
	if pdfCtx.PageCount != wantPages {
		return fmt.Errorf("%w: document has %d pages, expected %d", ErrWrite, pdfCtx.PageCount, wantPages)
	}
	return nil
}
