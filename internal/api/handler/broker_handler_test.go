package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
)

// scriptedAuthorizer allows exactly one token/device-group pair.
type scriptedAuthorizer struct {
	token string
	group string
}

func (a *scriptedAuthorizer) AuthorizeUser(_ context.Context, username, password string) bool {
	return username == a.token && password == a.group
}

func (a *scriptedAuthorizer) AuthorizeVhost(_ context.Context, username, vhost string) bool {
	return username == a.token && vhost == "/"
}

func (a *scriptedAuthorizer) AuthorizeResource(_ context.Context, username, resource, name, permission string) bool {
	return username == a.token && resource == "exchange" && permission == "read"
}

func (a *scriptedAuthorizer) AuthorizeTopic(_ context.Context, username, routingKey string) bool {
	return username == a.token && routingKey == "proj-1.lab-1"
}

func brokerRequest(t *testing.T, h echo.HandlerFunc, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodGet, "/?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestBrokerHandler_User(t *testing.T) {
	h := NewBrokerHandler(&scriptedAuthorizer{token: "tok", group: "lab-1"})

	rec := brokerRequest(t, h.User, map[string]string{"username": "tok", "password": "lab-1"})
	if rec.Code != http.StatusOK || rec.Body.String() != "allow administrator" {
		t.Fatalf("expected allow, got %d %q", rec.Code, rec.Body.String())
	}

	rec = brokerRequest(t, h.User, map[string]string{"username": "tok", "password": "lab-9"})
	if rec.Code != http.StatusUnauthorized || rec.Body.String() != "deny" {
		t.Fatalf("expected deny, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestBrokerHandler_Vhost(t *testing.T) {
	h := NewBrokerHandler(&scriptedAuthorizer{token: "tok"})

	rec := brokerRequest(t, h.Vhost, map[string]string{"username": "tok", "vhost": "/"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected allow, got %d", rec.Code)
	}

	rec = brokerRequest(t, h.Vhost, map[string]string{"username": "tok", "vhost": "/prod"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected deny, got %d", rec.Code)
	}
}

func TestBrokerHandler_Resource(t *testing.T) {
	h := NewBrokerHandler(&scriptedAuthorizer{token: "tok"})

	rec := brokerRequest(t, h.Resource, map[string]string{
		"username": "tok", "resource": "exchange", "name": "meetkit.events", "permission": "read",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected allow, got %d", rec.Code)
	}

	rec = brokerRequest(t, h.Resource, map[string]string{
		"username": "tok", "resource": "exchange", "name": "meetkit.events", "permission": "write",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected deny, got %d", rec.Code)
	}
}

func TestBrokerHandler_Topic(t *testing.T) {
	h := NewBrokerHandler(&scriptedAuthorizer{token: "tok"})

	rec := brokerRequest(t, h.Topic, map[string]string{"username": "tok", "routing_key": "proj-1.lab-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected allow, got %d", rec.Code)
	}

	rec = brokerRequest(t, h.Topic, map[string]string{"username": "tok", "routing_key": "proj-2.lab-1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected deny, got %d", rec.Code)
	}
}
