package notify

import (
	"strings"
	"testing"

	"github.com/edgelink/edgelink/internal/model"
)

func TestDefaultRenderer_AllKinds(t *testing.T) {
	t.Parallel()

	r := DefaultRenderer()
	params := map[string]string{"link": "https://edgelink.io/x"}

	for _, kind := range model.ValidNotificationKinds {
		subject, body, err := r.Render(kind, params)
		if err != nil {
			t.Errorf("Render(%s) failed: %v", kind, err)
			continue
		}
		if subject == "" {
			t.Errorf("Render(%s) returned empty subject", kind)
		}
		if body == "" {
			t.Errorf("Render(%s) returned empty body", kind)
		}
	}
}

func TestDefaultRenderer_LinkInterpolation(t *testing.T) {
	t.Parallel()

	r := DefaultRenderer()
	_, body, err := r.Render(model.NotifyVerification, map[string]string{"link": "https://edgelink.io/verify?t=1"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(body, "https://edgelink.io/verify?t=1") {
		t.Errorf("body should contain the link, got: %s", body)
	}
}

func TestDefaultRenderer_UnknownKind(t *testing.T) {
	t.Parallel()

	r := DefaultRenderer()
	if _, _, err := r.Render(model.NotificationKind("newsletter"), nil); err == nil {
		t.Error("unknown kind should error")
	}
}
