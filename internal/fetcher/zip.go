package fetcher

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// shapefileParts are the sidecar extensions a boundary archive must carry alongside
// the .shp geometry file.
var shapefileParts = []string{".shx", ".dbf"}

// DownloadFile streams url into path through f, replacing path only once the body
// has been written in full.
func DownloadFile(ctx context.Context, f Fetcher, url, path string) (int64, error) {
	body, err := f.Download(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "fetcher: create download dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, eris.Wrapf(err, "fetcher: write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, eris.Wrapf(err, "fetcher: rename to %s", path)
	}
	return n, nil
}

// ExtractShapefile unpacks a boundary archive into destDir and returns the path of
// the single .shp it contains. The matching .shx and .dbf must be present.
func ExtractShapefile(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var shpPath string
	extracted := make(map[string]struct{}, len(r.File))
	for _, f := range r.File {
		path, err := extractEntry(f, destDir)
		if err != nil {
			return "", err
		}
		if path == "" {
			continue
		}
		extracted[strings.ToLower(path)] = struct{}{}
		if strings.EqualFold(filepath.Ext(path), ".shp") {
			if shpPath != "" {
				return "", eris.Errorf("zip: archive holds more than one shapefile (%s, %s)", shpPath, path)
			}
			shpPath = path
		}
	}
	if shpPath == "" {
		return "", eris.New("zip: archive holds no .shp file")
	}

	stem := strings.ToLower(strings.TrimSuffix(shpPath, filepath.Ext(shpPath)))
	for _, ext := range shapefileParts {
		if _, ok := extracted[stem+ext]; !ok {
			return "", eris.Errorf("zip: %s is missing its %s sidecar", filepath.Base(shpPath), ext)
		}
	}

	zap.L().Info("fetcher: extracted shapefile",
		zap.String("archive", zipPath),
		zap.String("path", shpPath),
		zap.Int("files", len(extracted)),
	)
	return shpPath, nil
}

// extractEntry writes one archive entry under destDir. It returns "" for directories.
func extractEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "zip: create directory")
		}
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath) //nolint:gosec
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	if _, err := io.Copy(out, rc); err != nil { //nolint:gosec
		_ = out.Close()
		return "", eris.Wrap(err, "zip: write file")
	}
	if err := out.Close(); err != nil {
		return "", eris.Wrap(err, "zip: close file")
	}
	return destPath, nil
}
