package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

type gzipWriter struct {
	http.ResponseWriter
	zw          *gzip.Writer
	compress    bool
	wroteHeader bool
}

func (g *gzipWriter) WriteHeader(statusCode int) {
	if g.wroteHeader {
		return
	}
	g.wroteHeader = true

	if g.compress && compressibleContentType(g.Header().Get("Content-Type")) {
		g.Header().Set("Content-Encoding", "gzip")
		g.Header().Del("Content-Length")
	} else {
		g.compress = false
	}

	g.ResponseWriter.WriteHeader(statusCode)
}

func (g *gzipWriter) Write(b []byte) (int, error) {
	if !g.wroteHeader {
		g.WriteHeader(http.StatusOK)
	}
	if g.compress {
		return g.zw.Write(b)
	}
	return g.ResponseWriter.Write(b)
}

func (g *gzipWriter) close() error {
	if g.compress {
		return g.zw.Close()
	}
	return nil
}

func compressibleContentType(ct string) bool {
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "text/html") ||
		strings.Contains(ct, "text/plain")
}

// GzipMiddleware распаковывает сжатые тела запросов и сжимает ответы,
// если клиент поддерживает gzip.
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			defer zr.Close()
			r.Body = io.NopCloser(zr)
		}

		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		gw := &gzipWriter{
			ResponseWriter: w,
			zw:             gzip.NewWriter(w),
			compress:       true,
		}
		defer gw.close()

		next.ServeHTTP(gw, r)
	})
}
