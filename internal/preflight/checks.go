package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"goldmap/internal/company"
	"goldmap/internal/overrides"
)

// CheckCompanies verifies that the companies file loads and is not empty.
func CheckCompanies(name, path string) Result {
	entities, rejected, err := company.LoadEntities(path, 0)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if len(entities) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no companies)", path)}
	}
	detail := fmt.Sprintf("%s (%d companies)", path, len(entities))
	if len(rejected) > 0 {
		detail = fmt.Sprintf("%s (%d companies, %d rows skipped)", path, len(entities), len(rejected))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckOverrides verifies that the known-mapping table loads.
func CheckOverrides(name, path string) Result {
	table, err := overrides.Load(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	source := path
	if source == "" {
		source = "built-in"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", source, table.Len())}
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSource verifies that the directory site answers. Any response below
// 500 counts as reachable; the home page itself is not parsed.
func CheckSource(ctx context.Context, baseURL, userAgent string, timeout time.Duration) Result {
	const name = "Directory site"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base_url"}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("probe failed (%v)", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("%s answered %d", base, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (%d)", base, resp.StatusCode)}
}

func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (site unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (site unreachable)"
	}
	return err.Error()
}
