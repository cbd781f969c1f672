package router

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/coreh2/h2"
)

// mimeTable covers the common static-asset extensions without pulling
// in a full mime-sniffing
// dependency; mime.TypeByExtension covers everything else.
var mimeTable = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".svg":  "image/svg+xml",
	".wasm": "application/wasm",
}

// StaticFiles serves files under root, gzip-compressing text-like
// responses when the client advertises Accept-Encoding: gzip.
func StaticFiles(root string) HandlerFunc {
	return func(req *h2.Request) *h2.Response {
		clean := path.Clean("/" + req.Path)
		full := filepath.Join(root, filepath.FromSlash(clean))

		if !strings.HasPrefix(full, filepath.Clean(root)+string(filepath.Separator)) && full != filepath.Clean(root) {
			return h2.NewResponse(http.StatusForbidden)
		}

		f, err := os.Open(full)
		if err != nil {
			return h2.NewResponse(http.StatusNotFound)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			return h2.NewResponse(http.StatusNotFound)
		}

		body, err := io.ReadAll(f)
		if err != nil {
			return h2.NewResponse(http.StatusInternalServerError)
		}

		resp := h2.NewResponse(http.StatusOK)
		resp.SetHeader("content-type", contentType(full))

		if acceptsGzip(req) && isCompressible(full) {
			compressed, cerr := gzipCompress(body)
			if cerr == nil {
				resp.SetHeader("content-encoding", "gzip")
				resp.SetBody(compressed)
				return resp
			}
		}

		resp.SetBody(body)
		return resp
	}
}

func contentType(name string) string {
	ext := filepath.Ext(name)
	if ct, ok := mimeTable[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func isCompressible(name string) bool {
	switch filepath.Ext(name) {
	case ".html", ".css", ".js", ".json", ".svg", ".txt":
		return true
	default:
		return false
	}
}

func acceptsGzip(req *h2.Request) bool {
	return strings.Contains(req.Headers["accept-encoding"], "gzip")
}

func gzipCompress(b []byte) ([]byte, error) {
	var buf strings.Builder
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}
