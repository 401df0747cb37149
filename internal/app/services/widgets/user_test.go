package widgets

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mosaicboard/mosaic/internal/app/storage"
	svcerrors "github.com/mosaicboard/mosaic/internal/errors"
)

func newUserService(r Renderer) *UserService {
	return NewUserService(storage.NewMemory(), r, nil)
}

func TestUserWidgetCreateStoresRenderedArtifact(t *testing.T) {
	r := &fakeRenderer{}
	svc := newUserService(r)
	ctx := context.Background()

	w, err := svc.Create(ctx, "  ", "render a sticky note")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.ID == "" {
		t.Fatal("widget ID not assigned")
	}
	if w.Title != "Widget" {
		t.Fatalf("blank title not defaulted: %q", w.Title)
	}
	if w.Prompt != "render a sticky note" {
		t.Fatalf("prompt not stored: %q", w.Prompt)
	}
	if !strings.Contains(w.Markup, "<p>ok</p>") {
		t.Fatalf("unexpected markup: %q", w.Markup)
	}
	if w.CreatedAt.IsZero() || w.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not stamped: %+v", w)
	}
}

func TestUserWidgetCreateValidation(t *testing.T) {
	svc := newUserService(&fakeRenderer{})
	ctx := context.Background()

	cases := []struct {
		name   string
		title  string
		prompt string
	}{
		{"empty prompt", "t", ""},
		{"whitespace prompt", "t", "   "},
		{"oversized prompt", "t", strings.Repeat("p", MaxPromptBytes+1)},
		{"oversized title", strings.Repeat("t", MaxTitleBytes+1), "prompt"},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, tc.title, tc.prompt)
		if svcerrors.CodeOf(err) != svcerrors.CodeInvalidPayload {
			t.Fatalf("%s: expected invalid_payload, got %v", tc.name, err)
		}
	}
	if list, err := svc.List(ctx); err != nil || len(list) != 0 {
		t.Fatalf("rejected creates must not persist: %v %v", list, err)
	}
}

func TestUserWidgetCreateFailsWithoutArtifact(t *testing.T) {
	r := &fakeRenderer{render: func(json.RawMessage, string, string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	svc := newUserService(r)
	ctx := context.Background()

	_, err := svc.Create(ctx, "t", "prompt")
	if svcerrors.CodeOf(err) != svcerrors.CodeRenderFailed {
		t.Fatalf("expected render_failed, got %v", err)
	}
	list, err := svc.List(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("failed create must not persist a widget: %v %v", list, err)
	}
}

func TestUserWidgetUpdatePreservesIdentity(t *testing.T) {
	r := &fakeRenderer{}
	svc := newUserService(r)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Original", "first prompt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r.render = func(_ json.RawMessage, prompt, _ string) (string, error) {
		return "<p>regenerated</p>", nil
	}
	updated, err := svc.Update(ctx, created.ID, "Renamed", "second prompt")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || !updated.CreatedAt.Equal(created.CreatedAt) || updated.Seq != created.Seq {
		t.Fatalf("identity not preserved: created=%+v updated=%+v", created, updated)
	}
	if updated.Title != "Renamed" || updated.Prompt != "second prompt" {
		t.Fatalf("fields not replaced: %+v", updated)
	}
	if !strings.Contains(updated.Markup, "regenerated") {
		t.Fatalf("artifact not regenerated: %q", updated.Markup)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("updated_at went backwards: %v < %v", updated.UpdatedAt, created.UpdatedAt)
	}
}

func TestUserWidgetUpdateRenderFailureLeavesStored(t *testing.T) {
	r := &fakeRenderer{}
	svc := newUserService(r)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Keep", "good prompt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r.render = func(json.RawMessage, string, string) (string, error) {
		return "", errors.New("boom")
	}
	if _, err := svc.Update(ctx, created.ID, "New", "bad prompt"); svcerrors.CodeOf(err) != svcerrors.CodeRenderFailed {
		t.Fatalf("expected render_failed, got %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Keep" || got.Prompt != "good prompt" || got.Markup != created.Markup {
		t.Fatalf("stored widget changed by failed update: %+v", got)
	}
}

func TestUserWidgetRefreshCarriesStyle(t *testing.T) {
	r := &fakeRenderer{}
	svc := newUserService(r)
	ctx := context.Background()

	created, err := svc.Create(ctx, "t", "show a clock")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var gotPrompt, gotPrevious string
	r.render = func(_ json.RawMessage, prompt, previousMarkup string) (string, error) {
		gotPrompt, gotPrevious = prompt, previousMarkup
		return "<p>refreshed</p>", nil
	}

	markup, err := svc.Refresh(ctx, created.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !strings.Contains(markup, "refreshed") {
		t.Fatalf("unexpected markup: %q", markup)
	}
	if gotPrevious == "" {
		t.Fatal("refresh must hand the renderer the previous markup")
	}
	if !strings.Contains(gotPrompt, "show a clock") {
		t.Fatalf("refresh prompt lost the original instruction: %q", gotPrompt)
	}
	if gotPrompt == "show a clock" {
		t.Fatal("refresh prompt must carry the style instruction, not the original verbatim")
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(got.Markup, "refreshed") {
		t.Fatalf("refresh result not persisted: %q", got.Markup)
	}
}

func TestUserWidgetFullRefreshUsesPromptVerbatim(t *testing.T) {
	r := &fakeRenderer{}
	svc := newUserService(r)
	ctx := context.Background()

	created, err := svc.Create(ctx, "t", "show a clock")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var gotPrompt, gotPrevious string
	r.render = func(_ json.RawMessage, prompt, previousMarkup string) (string, error) {
		gotPrompt, gotPrevious = prompt, previousMarkup
		return "<p>fresh</p>", nil
	}
	if _, err := svc.FullRefresh(ctx, created.ID); err != nil {
		t.Fatalf("full refresh: %v", err)
	}
	if gotPrompt != "show a clock" {
		t.Fatalf("full refresh must use the stored prompt verbatim, got %q", gotPrompt)
	}
	if gotPrevious != "" {
		t.Fatalf("full refresh must not carry previous markup, got %q", gotPrevious)
	}
}

func TestUserWidgetDelete(t *testing.T) {
	svc := newUserService(&fakeRenderer{})
	ctx := context.Background()

	created, err := svc.Create(ctx, "t", "prompt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); svcerrors.CodeOf(err) != svcerrors.CodeNotFound {
		t.Fatalf("expected not_found after delete, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID); svcerrors.CodeOf(err) != svcerrors.CodeNotFound {
		t.Fatalf("double delete: expected not_found, got %v", err)
	}
}

func TestUserWidgetNotFoundPaths(t *testing.T) {
	svc := newUserService(&fakeRenderer{})
	ctx := context.Background()

	if _, err := svc.Get(ctx, "missing"); svcerrors.CodeOf(err) != svcerrors.CodeNotFound {
		t.Fatalf("get: expected not_found, got %v", err)
	}
	if _, err := svc.Update(ctx, "missing", "t", "p"); svcerrors.CodeOf(err) != svcerrors.CodeNotFound {
		t.Fatalf("update: expected not_found, got %v", err)
	}
	if _, err := svc.Refresh(ctx, "missing"); svcerrors.CodeOf(err) != svcerrors.CodeNotFound {
		t.Fatalf("refresh: expected not_found, got %v", err)
	}
}

func TestUserWidgetListOrdersByCreation(t *testing.T) {
	svc := newUserService(&fakeRenderer{})
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		w, err := svc.Create(ctx, title, "prompt "+title)
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		ids = append(ids, w.ID)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 widgets, got %d", len(list))
	}
	for i, w := range list {
		if w.ID != ids[i] {
			t.Fatalf("position %d: expected %s, got %s", i, ids[i], w.ID)
		}
	}
}
