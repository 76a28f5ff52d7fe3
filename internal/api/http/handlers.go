package http

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/loader"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/utils"
)

// Handlers serves the host dispatch API over a mount registry
type Handlers struct {
	registry    *registry.Registry
	loader      *loader.Loader
	metrics     *monitoring.Metrics
	logger      *logging.Logger
	breakers    *resilience.Set
	artifactDir string
}

// NewHandlers creates the host handlers. Relative paths in mount requests
// resolve against artifactDir.
func NewHandlers(ld *loader.Loader, metrics *monitoring.Metrics, logger *logging.Logger, artifactDir string) *Handlers {
	return &Handlers{
		registry:    ld.Registry(),
		loader:      ld,
		metrics:     metrics,
		logger:      logging.OrNop(logger).Component("api"),
		breakers:    resilience.NewSet(resilience.DefaultSettings()),
		artifactDir: artifactDir,
	}
}

// WithBreakers replaces the per-export circuit breakers
func (h *Handlers) WithBreakers(set *resilience.Set) *Handlers {
	h.breakers = set
	return h
}

// Register attaches every route to the router
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	mounts := r.Group("/mounts")
	{
		mounts.GET("", h.ListMounts)
		mounts.POST("", h.Mount)
		mounts.GET("/:id", h.GetMount)
		mounts.DELETE("/:id", h.Unmount)
	}

	exports := r.Group("/exports")
	{
		exports.GET("", h.ListExports)
		exports.GET("/:id", h.GetExport)
		exports.POST("/:id/invoke", h.Invoke)
	}

	r.GET("/ui/:id/*filepath", h.ServeUI)
}

// Health reports registry state
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"registry": h.registry.Stats(),
		"policy":   h.registry.Policy().String(),
		"breakers": h.breakers.States(),
	})
}

// ListMounts lists mounted packages
func (h *Handlers) ListMounts(c *gin.Context) {
	pkgs := h.registry.List()
	summaries := make([]registry.Summary, 0, len(pkgs))
	for _, p := range pkgs {
		summaries = append(summaries, p.Summary())
	}

	c.JSON(http.StatusOK, gin.H{
		"mounts": summaries,
		"stats":  h.registry.Stats(),
	})
}

// GetMount returns one mounted package with its bindings
func (h *Handlers) GetMount(c *gin.Context) {
	packageID := c.Param("id")
	if err := utils.ValidatePattern(packageID, "package_id", utils.MaxPackageIDLength, utils.PackageIDPattern, "lowercase letters, digits and hyphens"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pkg, ok := h.registry.Package(packageID)
	if !ok {
		h.fail(c, types.NotMountedError(packageID))
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// Mount loads an artifact from disk and mounts it
func (h *Handlers) Mount(c *gin.Context) {
	var req types.MountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path, err := h.artifactPath(req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pkg, err := h.loader.LoadWithHash(c.Request.Context(), path, req.Hash)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.breakers.Forget(pkg.ExportIDs()...)
	c.JSON(http.StatusCreated, pkg)
}

// artifactPath resolves a requested artifact inside the artifact directory.
// Without one configured the path is used as given.
func (h *Handlers) artifactPath(p string) (string, error) {
	if h.artifactDir == "" {
		return p, nil
	}
	if filepath.IsAbs(p) {
		root, err := filepath.Abs(h.artifactDir)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return "", fmt.Errorf("path %q escapes %s", p, h.artifactDir)
		}
		p = rel
	}
	return paths.SafeJoin(h.artifactDir, filepath.ToSlash(p))
}

// Unmount removes a package and everything it owns
func (h *Handlers) Unmount(c *gin.Context) {
	packageID := c.Param("id")
	pkg, ok := h.registry.Package(packageID)
	if err := h.loader.Unload(packageID); err != nil {
		h.fail(c, err)
		return
	}
	if ok {
		h.breakers.Forget(pkg.ExportIDs()...)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"package_id": packageID,
	})
}

// ListExports returns the global export table
func (h *Handlers) ListExports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"exports": h.registry.Snapshot(),
	})
}

// GetExport resolves one export id
func (h *Handlers) GetExport(c *gin.Context) {
	exportID := c.Param("id")
	b, ok := h.registry.Lookup(exportID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found", "export_id": exportID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"binding":   b,
		"invocable": b.Invocable(),
	})
}

// Invoke dispatches a call to a public export
func (h *Handlers) Invoke(c *gin.Context) {
	exportID := c.Param("id")
	b, ok := h.registry.Lookup(exportID)
	if !ok || b.Visibility != manifest.Public {
		h.metrics.RecordInvocation(exportID, "not_found")
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found", "export_id": exportID})
		return
	}
	if !b.Invocable() {
		h.metrics.RecordInvocation(exportID, "unbound")
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":     "export has no registered implementation",
			"export_id": exportID,
			"kind":      b.Kind,
		})
		return
	}

	var req types.InvokeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var resp types.Response
	err := h.breakers.Execute(c.Request.Context(), exportID, func(ctx context.Context) error {
		var err error
		resp, err = b.Invoker.Invoke(ctx, types.Request{
			ExportID: exportID,
			Params:   req.Params,
			Metadata: req.Metadata,
		})
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		h.metrics.RecordInvocation(exportID, "circuit_open")
		c.Header("Retry-After", strconv.Itoa(int(h.breakers.Timeout().Seconds())))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "export_id": exportID})
		return
	}
	if err != nil {
		h.metrics.RecordInvocation(exportID, "error")
		h.logger.Warn("Invocation failed",
			zap.String("export", exportID),
			zap.String("package", b.PackageID),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "export_id": exportID})
		return
	}

	h.metrics.RecordInvocation(exportID, "success")
	c.JSON(http.StatusOK, resp)
}

// ServeUI serves static assets from a mounted package's ui surface
func (h *Handlers) ServeUI(c *gin.Context) {
	packageID := c.Param("id")
	pkg, ok := h.registry.Package(packageID)
	if !ok {
		h.fail(c, types.NotMountedError(packageID))
		return
	}
	if pkg.Manifest == nil || pkg.Manifest.Surfaces.UI == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "package has no ui surface", "package_id": packageID})
		return
	}

	rel := strings.TrimPrefix(c.Param("filepath"), "/")
	if rel == "" {
		rel = "index.html"
	}
	root := filepath.Join(pkg.StagingDir, "dist", "ui")
	full, err := paths.SafeJoin(root, rel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found", "path": rel})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !info.Mode().IsRegular() {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found", "path": rel})
		return
	}

	f, err := os.Open(full)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	c.Header("Content-Type", contentType(full))
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

// contentType prefers the extension table and sniffs content otherwise
func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mtype.String()
}

// fail writes a typed error with its mapped status
func (h *Handlers) fail(c *gin.Context, err error) {
	status := StatusOf(err)
	var te *types.Error
	if errors.As(err, &te) {
		c.JSON(status, gin.H{"error": te})
		return
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": gin.H{"message": err.Error()}})
}
