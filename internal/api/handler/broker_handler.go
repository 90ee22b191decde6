package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/meetkit/internal/api/metrics"
)

// BrokerAuthorizer answers the message broker's external auth checks. The
// broker sends the platform token as the username and a device-group name as
// the password.
type BrokerAuthorizer interface {
	AuthorizeUser(ctx context.Context, username, password string) bool
	AuthorizeVhost(ctx context.Context, username, vhost string) bool
	AuthorizeResource(ctx context.Context, username, resource, name, permission string) bool
	AuthorizeTopic(ctx context.Context, username, routingKey string) bool
}

// BrokerHandler exposes the broker auth-backend callbacks. The broker treats
// any 2xx body starting with "allow" as permission granted and everything
// else as denied, so allow is a 200 and deny a 401 with literal bodies.
type BrokerHandler struct {
	authorizer BrokerAuthorizer
}

func NewBrokerHandler(authorizer BrokerAuthorizer) *BrokerHandler {
	return &BrokerHandler{authorizer: authorizer}
}

func (h *BrokerHandler) decide(c echo.Context, check string, allowed bool) error {
	if allowed {
		metrics.BrokerDecisionsTotal.WithLabelValues(check, "allow").Inc()
		return c.String(http.StatusOK, "allow administrator")
	}
	metrics.BrokerDecisionsTotal.WithLabelValues(check, "deny").Inc()
	return c.String(http.StatusUnauthorized, "deny")
}

// User handles the broker's login check.
//
// @Summary      Broker user check
// @Tags         broker
// @Produce      plain
// @Param        username  query     string  true  "Platform token"
// @Param        password  query     string  true  "Device group"
// @Success      200       {string}  string  "allow administrator"
// @Failure      401       {string}  string  "deny"
// @Router       /auth/user [get]
func (h *BrokerHandler) User(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	return h.decide(c, "user", h.authorizer.AuthorizeUser(c.Request().Context(), username, password))
}

// Vhost handles the broker's vhost check.
//
// @Summary      Broker vhost check
// @Tags         broker
// @Produce      plain
// @Param        username  query     string  true  "Platform token"
// @Param        vhost     query     string  true  "Virtual host"
// @Success      200       {string}  string  "allow administrator"
// @Failure      401       {string}  string  "deny"
// @Router       /auth/vhost [get]
func (h *BrokerHandler) Vhost(c echo.Context) error {
	username := c.FormValue("username")
	vhost := c.FormValue("vhost")
	return h.decide(c, "vhost", h.authorizer.AuthorizeVhost(c.Request().Context(), username, vhost))
}

// Resource handles the broker's exchange/queue permission check.
//
// @Summary      Broker resource check
// @Tags         broker
// @Produce      plain
// @Param        username    query     string  true  "Platform token"
// @Param        resource    query     string  true  "Resource type (exchange, queue)"
// @Param        name        query     string  true  "Resource name"
// @Param        permission  query     string  true  "Requested permission"
// @Success      200         {string}  string  "allow administrator"
// @Failure      401         {string}  string  "deny"
// @Router       /auth/resource [get]
func (h *BrokerHandler) Resource(c echo.Context) error {
	username := c.FormValue("username")
	resource := c.FormValue("resource")
	name := c.FormValue("name")
	permission := c.FormValue("permission")
	return h.decide(c, "resource", h.authorizer.AuthorizeResource(c.Request().Context(), username, resource, name, permission))
}

// Topic handles the broker's routing-key check.
//
// @Summary      Broker topic check
// @Tags         broker
// @Produce      plain
// @Param        username     query     string  true  "Platform token"
// @Param        routing_key  query     string  true  "Routing key"
// @Success      200          {string}  string  "allow administrator"
// @Failure      401          {string}  string  "deny"
// @Router       /auth/topic [get]
func (h *BrokerHandler) Topic(c echo.Context) error {
	username := c.FormValue("username")
	routingKey := c.FormValue("routing_key")
	return h.decide(c, "topic", h.authorizer.AuthorizeTopic(c.Request().Context(), username, routingKey))
}
