package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

type stubDispatcher struct {
	err     error
	actions []domain.Action
}

func (d *stubDispatcher) Enqueue(_ context.Context, a domain.Action) error {
	if d.err != nil {
		return d.err
	}
	d.actions = append(d.actions, a)
	return nil
}

func (d *stubDispatcher) EnqueueBatch(ctx context.Context, as []domain.Action) error {
	for _, a := range as {
		if err := d.Enqueue(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func post(e *echo.Echo, h echo.HandlerFunc, path, body string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	err := h(e.NewContext(req, rec))
	return rec, err
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestActionHandler_Receive_Accepted(t *testing.T) {
	e := newTestEcho()
	d := &stubDispatcher{}
	h := NewActionHandler(d)

	rec, err := post(e, h.Receive, "/v1/actions",
		`{"id":"upd-1","identity":"42","kind":"photo_shared","value":"photo-1","location":{"lat":41.31,"lng":69.28},"sent_at":"2024-05-01T09:05:00Z"}`)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	if len(d.actions) != 1 {
		t.Fatalf("expected 1 enqueued action, got %d", len(d.actions))
	}
	a := d.actions[0]
	if a.ID != "upd-1" || a.Kind != domain.ActionPhotoShared || a.Location == nil || a.Location.Lng != 69.28 {
		t.Errorf("unexpected action: %+v", a)
	}
	if a.SentAt.Hour() != 9 || a.SentAt.Minute() != 5 {
		t.Errorf("unexpected sent_at: %v", a.SentAt)
	}

	var resp acceptedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Message != "action accepted" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestActionHandler_Receive_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing identity": `{"kind":"text","value":"hi"}`,
		"unknown kind":     `{"identity":"42","kind":"teleport"}`,
		"bad latitude":     `{"identity":"42","kind":"photo_shared","value":"p","location":{"lat":123,"lng":0}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			d := &stubDispatcher{}
			_, err := post(newTestEcho(), NewActionHandler(d).Receive, "/v1/actions", body)
			if code := httpCode(t, err); code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", code)
			}
			if len(d.actions) != 0 {
				t.Error("invalid action must not be enqueued")
			}
		})
	}
}

func TestActionHandler_Receive_MalformedJSON(t *testing.T) {
	_, err := post(newTestEcho(), NewActionHandler(&stubDispatcher{}).Receive, "/v1/actions", `{"identity":`)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestActionHandler_Receive_QueueUnavailable(t *testing.T) {
	d := &stubDispatcher{err: context.Canceled}
	_, err := post(newTestEcho(), NewActionHandler(d).Receive, "/v1/actions", `{"identity":"42","kind":"cancel"}`)
	if code := httpCode(t, err); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}

func TestActionHandler_ReceiveBatch(t *testing.T) {
	d := &stubDispatcher{}
	rec, err := post(newTestEcho(), NewActionHandler(d).ReceiveBatch, "/v1/actions/batch",
		`[{"identity":"42","kind":"registration_start"},{"identity":"42","kind":"text","value":"Cashier"}]`)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(d.actions) != 2 || d.actions[1].Value != "Cashier" {
		t.Errorf("unexpected actions: %+v", d.actions)
	}
}

func TestActionHandler_ReceiveBatch_Rejects(t *testing.T) {
	d := &stubDispatcher{}
	h := NewActionHandler(d)

	_, err := post(newTestEcho(), h.ReceiveBatch, "/v1/actions/batch", `[]`)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %d", code)
	}

	_, err = post(newTestEcho(), h.ReceiveBatch, "/v1/actions/batch",
		`[{"identity":"42","kind":"cancel"},{"kind":"cancel"}]`)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if msg, _ := he.Message.(string); !strings.HasPrefix(msg, "action[1]:") || !strings.Contains(msg, "identity is required") {
		t.Errorf("unexpected message: %v", he.Message)
	}
	if len(d.actions) != 0 {
		t.Error("no action of a rejected batch may be enqueued")
	}
}
