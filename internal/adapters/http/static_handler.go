package http

import (
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/assetmanager/core/internal/infrastructure/logger"
)

// StaticHandler serves front-end assets from the static root
type StaticHandler struct {
	root   fs.FS
	logger *logger.Logger
}

// NewStaticHandler creates a handler rooted at dir
func NewStaticHandler(dir string, logger *logger.Logger) *StaticHandler {
	return NewStaticHandlerFS(os.DirFS(dir), logger)
}

// NewStaticHandlerFS creates a handler over an arbitrary file system
func NewStaticHandlerFS(root fs.FS, logger *logger.Logger) *StaticHandler {
	return &StaticHandler{
		root:   root,
		logger: logger,
	}
}

// Serve writes the file named by the request path. Directories serve their
// index.html; anything missing is a 404.
func (h *StaticHandler) Serve(c echo.Context) error {
	name, ok := staticName(c.Request().URL.Path)
	if !ok {
		h.logger.Debugw("Refused hidden static path", "path", c.Request().URL.Path)
		return echo.ErrNotFound
	}
	if err := echo.StaticFileHandler(name, h.root)(c); err != nil {
		h.logger.Debugw("Static file not served", "path", c.Request().URL.Path, "name", name, "error", err)
		return err
	}
	return nil
}

// staticName maps a URL path to an fs.FS name. Cleaning against "/" drops
// every ".." that would climb above the root. Names with a dot-prefixed
// segment (.env, .git/config) are not served.
func staticName(urlPath string) (string, bool) {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		return ".", true
	}
	for _, segment := range strings.Split(name, "/") {
		if strings.HasPrefix(segment, ".") {
			return name, false
		}
	}
	return name, true
}
