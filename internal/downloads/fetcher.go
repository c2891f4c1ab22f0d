package downloads

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jpdarela/luaenv/internal/ui"
)

// fetch downloads a single URL to dest, streaming through a progress bar
// when enabled. A partially written file is removed on failure so presence
// checks never see a truncated archive as valid.
func (m *Manager) fetch(ctx context.Context, url, dest string) error {
	m.log.Debug().Str("url", url).Str("dest", dest).Msg("downloading file")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	out, err := m.fs.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	var w io.Writer = out
	var bar *ui.ProgressBar
	if m.progress {
		bar = ui.NewProgressBarBytes(resp.ContentLength, "downloading")
		w = io.MultiWriter(out, bar)
	}

	_, copyErr := io.Copy(w, resp.Body)
	closeErr := out.Close()
	if bar != nil {
		bar.Finish()
	}

	if copyErr != nil {
		m.fs.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, copyErr)
	}
	if closeErr != nil {
		m.fs.Remove(dest)
		return fmt.Errorf("close %s: %w", dest, closeErr)
	}

	return nil
}
