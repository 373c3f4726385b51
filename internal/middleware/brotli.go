package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

type BrotliConfig struct {
	Quality   int
	Skipper   func(c *gin.Context) bool
	MinLength int
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
	Skipper:   nil,
}

type brotliWriter struct {
	gin.ResponseWriter
	writer     *brotli.Writer
	buf        []byte
	minLength  int
	once       sync.Once
	compressed bool
	passthru   bool
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.passthru {
		return bw.ResponseWriter.Write(data)
	}
	bw.buf = append(bw.buf, data...)

	if len(bw.buf) >= bw.minLength {
		bw.once.Do(func() {
			if precompressed(bw.ResponseWriter.Header().Get("Content-Type")) {
				bw.passthru = true
				return
			}
			bw.compressed = true
			bw.ResponseWriter.Header().Set("Content-Encoding", "br")
			bw.ResponseWriter.Header().Del("Content-Length")
		})
		if bw.passthru {
			if err := bw.flush(); err != nil {
				return 0, err
			}
			return len(data), nil
		}
		if _, err := bw.writer.Write(bw.buf); err != nil {
			return 0, err
		}
		bw.buf = bw.buf[:0]
	}

	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// Flush drains the buffer in whatever encoding the response already uses
// and forwards the flush to the underlying writer.
func (bw *brotliWriter) Flush() {
	_ = bw.flush()
	if bw.compressed {
		_ = bw.writer.Flush()
	}
	bw.ResponseWriter.Flush()
}

func (bw *brotliWriter) flush() error {
	if len(bw.buf) == 0 {
		return nil
	}
	var err error
	if bw.compressed {
		_, err = bw.writer.Write(bw.buf)
	} else {
		_, err = bw.ResponseWriter.Write(bw.buf)
	}
	bw.buf = bw.buf[:0]
	return err
}

func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < 0 || cfg.Quality > 11 {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		// Built-in skip for protocols that are incompatible with buffered compression
		if shouldSkip(c) {
			c.Next()
			return
		}

		// User-defined skip
		if cfg.Skipper != nil && cfg.Skipper(c) {
			c.Next()
			return
		}

		if !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			minLength:      cfg.MinLength,
			writer:         brotli.NewWriterLevel(c.Writer, cfg.Quality),
		}

		defer func() {
			if err := bw.flush(); err != nil {
				_ = c.Error(err)
			}
			if bw.compressed {
				bw.writer.Close()
			}
		}()

		c.Writer = bw
		c.Next()
	}
}

// shouldSkip returns true for protocols that are incompatible with
// buffered compression and must be passed through untouched.
func shouldSkip(c *gin.Context) bool {
	// SSE needs immediate streaming
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	// WebSocket upgrades must not be intercepted: the Upgrade handshake
	// will fail if the response is wrapped or buffered
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return true
	}
	return false
}

// precompressed reports content types that gain nothing from brotli:
// generated papers and spreadsheets are already zip or PDF streams.
func precompressed(contentType string) bool {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "application/pdf"),
		strings.HasPrefix(ct, "application/zip"),
		strings.HasPrefix(ct, "application/vnd.openxmlformats-officedocument"),
		strings.HasPrefix(ct, "application/msword"),
		strings.HasPrefix(ct, "image/"):
		return true
	}
	return false
}

func acceptsBrotli(r *http.Request) bool {
	ae := r.Header.Get("Accept-Encoding")
	for _, enc := range strings.Split(ae, ",") {
		if strings.TrimSpace(strings.ToLower(enc)) == "br" {
			return true
		}
	}
	return false
}
