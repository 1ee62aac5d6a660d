// Package router mounts the HTTP handlers onto a gin engine.
package router

import (
	"net/http"
	"path"

	"github.com/garage-erp/backend/internal/interfaces/http/dto"
	"github.com/garage-erp/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// MountAPI registers groups under /api/<version> and answers unknown routes
// with the standard error envelope.
func MountAPI(engine *gin.Engine, version string, groups ...*DomainGroup) {
	api := engine.Group("/api/" + version)
	for _, g := range groups {
		g.register(api)
	}
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRouteNotFound,
			"No route for "+c.Request.Method+" "+c.Request.URL.Path,
			middleware.GetRequestID(c),
		))
	})
}

// DomainGroup collects the routes of one domain under a prefix. Routes are
// only handed to gin by MountAPI, so a group can be built in any order.
type DomainGroup struct {
	prefix     string
	routes     []route
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates an empty group
func NewDomainGroup(prefix string) *DomainGroup {
	return &DomainGroup{prefix: prefix}
}

// Use adds middleware that runs before every route of the group and its subgroups
func (g *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, mw...)
	return g
}

func (g *DomainGroup) GET(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.handle(http.MethodGet, p, handlers)
}

func (g *DomainGroup) POST(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.handle(http.MethodPost, p, handlers)
}

func (g *DomainGroup) DELETE(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.handle(http.MethodDelete, p, handlers)
}

func (g *DomainGroup) handle(method, p string, handlers []gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, route{method: method, path: p, handlers: handlers})
	return g
}

// Group returns a new subgroup nested under g
func (g *DomainGroup) Group(prefix string) *DomainGroup {
	sub := NewDomainGroup(prefix)
	g.subgroups = append(g.subgroups, sub)
	return sub
}

// Endpoints lists "METHOD /path" for every route, relative to the API root
func (g *DomainGroup) Endpoints() []string {
	var out []string
	g.walk("/", func(method, full string) {
		out = append(out, method+" "+full)
	})
	return out
}

func (g *DomainGroup) walk(parent string, fn func(method, full string)) {
	base := path.Join(parent, g.prefix)
	for _, r := range g.routes {
		full := base
		if r.path != "" {
			full = path.Join(base, r.path)
		}
		fn(r.method, full)
	}
	for _, sub := range g.subgroups {
		sub.walk(base, fn)
	}
}

func (g *DomainGroup) register(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix)
	if len(g.middleware) > 0 {
		group.Use(g.middleware...)
	}
	for _, r := range g.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
	for _, sub := range g.subgroups {
		sub.register(group)
	}
}
