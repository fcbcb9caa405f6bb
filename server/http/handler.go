package http

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/opdss/sheetkit/contracts/excel"
	"github.com/opdss/sheetkit/contracts/storage"
	"github.com/opdss/sheetkit/excel/export"
	"github.com/opdss/sheetkit/excel/layout"
	"github.com/opdss/sheetkit/iterator"
	"github.com/opdss/sheetkit/redis"
)

var errBadRequest = errors.New("bad request")

type exporter interface {
	excel.Exporter
	Total() int
}

// Handler 按布局文件导出数据库查询结果，并提供存储文件的列表和下载
type Handler struct {
	db        *gorm.DB
	fs        storage.FileSystem
	layoutDir string
	lockers   export.LockerFactory
	options   []export.Option
	logger    *zap.Logger
}

func NewHandler(db *gorm.DB, fs storage.FileSystem, layoutDir string, logger *zap.Logger, opts ...export.Option) *Handler {
	return &Handler{
		db:        db,
		fs:        fs,
		layoutDir: layoutDir,
		options:   opts,
		logger:    logger,
	}
}

// WithLocker 上传存储时加锁
func (h *Handler) WithLocker(factory export.LockerFactory) *Handler {
	h.lockers = factory
	return h
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	r.GET("/layouts", h.Layouts)
	r.GET("/export/:name", h.Download)
	r.POST("/export/:name", h.Store)
	r.GET("/files", h.Files)
	r.GET("/download/*key", h.File)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Layouts 布局目录下所有布局名称
func (h *Handler) Layouts(c *gin.Context) {
	entries, err := os.ReadDir(h.layoutDir)
	if err != nil {
		h.fail(c, err)
		return
	}
	names := []string{}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"list": names})
}

// Download 导出为附件下载，超过单文件行数时下载 zip
func (h *Handler) Download(c *gin.Context) {
	l, e, err := h.newExporter(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	path, err := e.Export(c.Request.Context())
	if path != "" {
		defer func() {
			if err := os.Remove(path); err != nil {
				h.logger.Warn("remove export file failed", zap.String("file", path), zap.Error(err))
			}
		}()
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("export downloaded", zap.String("layout", l.Name), zap.Int("rows", e.Total()))
	c.FileAttachment(path, l.Name+filepath.Ext(path))
}

// Store 导出并上传到存储，返回下载地址
func (h *Handler) Store(c *gin.Context) {
	l, e, err := h.newExporter(c, export.WithFilename(c.Param("name")+"_"+strings.ReplaceAll(uuid.NewString(), "-", "")[:12]))
	if err != nil {
		h.fail(c, err)
		return
	}
	url, err := e.ExportToStorage(c.Request.Context(), h.fs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"layout": l.Name, "url": url, "rows": e.Total()})
}

// Files 列出存储中的文件
func (h *Handler) Files(c *gin.Context) {
	res, err := h.fs.ListObjects(c.Request.Context(), &storage.ListObjectOpts{
		Directory: c.Query("directory"),
		Prefix:    c.Query("prefix"),
		NextToken: c.Query("next_token"),
		MaxKeys:   cast.ToInt32(c.Query("max_keys")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// File 下载存储中的文件
func (h *Handler) File(c *gin.Context) {
	ctx := c.Request.Context()
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || !h.fs.Exists(ctx, key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	size, err := h.fs.Size(ctx, key)
	if err != nil {
		h.fail(c, err)
		return
	}
	mime, err := h.fs.MimeType(ctx, key)
	if err != nil {
		h.fail(c, err)
		return
	}
	rc, err := h.fs.GetStream(ctx, key)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer func() {
		_ = rc.Close()
	}()
	c.DataFromReader(http.StatusOK, size, mime, rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + filepath.Base(key) + `"`,
	})
}

func (h *Handler) newExporter(c *gin.Context, extra ...export.Option) (*layout.Layout, exporter, error) {
	l, err := layout.Find(h.layoutDir, c.Param("name"))
	if err != nil {
		return nil, nil, err
	}
	if l.Query == "" {
		return nil, nil, Error.New("%w: layout %q has no query", errBadRequest, l.Name)
	}
	lopts, err := l.ExportOptions()
	if err != nil {
		return nil, nil, err
	}
	opts := append(append(append([]export.Option{}, h.options...), lopts...), extra...)
	opts = append(opts, export.WithLogger(h.logger))
	if h.lockers != nil {
		opts = append(opts, export.WithLocker(h.lockers, 0))
	}
	args := make([]any, 0)
	for _, a := range c.QueryArray("arg") {
		args = append(args, a)
	}
	it := iterator.NewSqlIterator[layout.Row](h.db, l.Query, args)
	switch c.DefaultQuery("format", export.ExcelSuffix) {
	case export.ExcelSuffix:
		return l, export.NewExcel(l.Mappers(), it, opts...), nil
	case export.CsvSuffix:
		return l, export.NewCsv(l.Mappers(), it, opts...), nil
	}
	return nil, nil, Error.New("%w: unsupported format %q", errBadRequest, c.Query("format"))
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, layout.ErrNotFound), errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, export.ErrMaximumLimit):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, redis.ErrFailure):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
