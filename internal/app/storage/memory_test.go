package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mosaicboard/mosaic/internal/app/domain/tenant"
	"github.com/mosaicboard/mosaic/internal/app/domain/userwidget"
	"github.com/mosaicboard/mosaic/internal/app/domain/widget"
)

func TestMemoryTenantOrdering(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"alpha", "beta", "gamma"} {
		created, err := m.CreateTenant(ctx, tenant.Tenant{DisplayName: name, IntegrationToken: "tok-" + name})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	listed, err := m.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, tn := range listed {
		require.Equal(t, ids[i], tn.ID, "listing order must follow creation order")
	}

	// Registrations in the same clock tick must still order strictly.
	for i := 1; i < len(listed); i++ {
		prev, cur := listed[i-1], listed[i]
		require.False(t, cur.RegisteredAt.Before(prev.RegisteredAt))
		require.Greater(t, cur.Seq, prev.Seq)
	}
}

func TestMemoryDuplicateToken(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.CreateTenant(ctx, tenant.Tenant{DisplayName: "a", IntegrationToken: "same"})
	require.NoError(t, err)

	_, err = m.CreateTenant(ctx, tenant.Tenant{DisplayName: "b", IntegrationToken: "same"})
	require.ErrorIs(t, err, ErrDuplicateToken)
}

func TestMemoryTokenLookup(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.CreateTenant(ctx, tenant.Tenant{DisplayName: "app", IntegrationToken: "secret"})
	require.NoError(t, err)

	found, err := m.GetTenantByToken(ctx, "secret")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = m.GetTenantByToken(ctx, "bogus")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryWidgetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.GetWidget(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	rec := widget.Record{
		TenantID:     "t1",
		RawData:      []byte(`{"city":"SF"}`),
		RenderPrompt: "show temperature",
		CachedMarkup: "<div>72</div>",
	}
	_, err = m.UpsertWidget(ctx, rec)
	require.NoError(t, err)

	got, err := m.GetWidget(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, rec.CachedMarkup, got.CachedMarkup)
	require.JSONEq(t, `{"city":"SF"}`, string(got.RawData))

	// Replacement is wholesale, no merging.
	rec.RawData = []byte(`{"city":"NYC"}`)
	rec.CachedMarkup = "<div>41</div>"
	_, err = m.UpsertWidget(ctx, rec)
	require.NoError(t, err)

	got, err = m.GetWidget(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "<div>41</div>", got.CachedMarkup)
	require.JSONEq(t, `{"city":"NYC"}`, string(got.RawData))
}

func TestMemoryDeleteTenantFreesToken(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.CreateTenant(ctx, tenant.Tenant{DisplayName: "app", IntegrationToken: "tok"})
	require.NoError(t, err)

	require.NoError(t, m.DeleteTenant(ctx, created.ID))
	_, err = m.GetTenantByToken(ctx, "tok")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, m.DeleteTenant(ctx, created.ID), ErrNotFound)
}

func TestMemoryUserWidgetLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		created, err := m.CreateUserWidget(ctx, userwidget.Widget{Title: title, Prompt: "p", Markup: "<p>x</p>"})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		require.False(t, created.CreatedAt.IsZero())
		ids = append(ids, created.ID)
	}

	listed, err := m.ListUserWidgets(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, w := range listed {
		require.Equal(t, ids[i], w.ID, "listing order must follow creation order")
	}
	for i := 1; i < len(listed); i++ {
		require.Greater(t, listed[i].Seq, listed[i-1].Seq)
	}

	first := listed[0]
	first.Title = "renamed"
	first.Markup = "<p>new</p>"
	updated, err := m.UpdateUserWidget(ctx, first)
	require.NoError(t, err)
	require.Equal(t, first.ID, updated.ID)
	require.Equal(t, first.CreatedAt, updated.CreatedAt, "update must not move creation time")
	require.Equal(t, first.Seq, updated.Seq, "update must not reorder the widget")
	require.Equal(t, "renamed", updated.Title)

	require.NoError(t, m.DeleteUserWidget(ctx, first.ID))
	_, err = m.GetUserWidget(ctx, first.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, m.DeleteUserWidget(ctx, first.ID), ErrNotFound)

	listed, err = m.ListUserWidgets(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestMemoryUserWidgetUpdateMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.UpdateUserWidget(context.Background(), userwidget.Widget{ID: "nope"})
	require.ErrorIs(t, err, ErrNotFound)
}
