package view

import (
	"context"
	"testing"

	"github.com/brainbow/syncd/domain"
)

type fakeFilterGateway struct {
	filters map[string]domain.Filter
	deletes int
}

func (f *fakeFilterGateway) List(ctx context.Context, userID string) ([]domain.Filter, error) {
	var out []domain.Filter
	for _, filter := range f.filters {
		if filter.UserID == userID {
			out = append(out, filter)
		}
	}
	return out, nil
}

func (f *fakeFilterGateway) Upsert(ctx context.Context, filter *domain.Filter) error {
	f.filters[filter.ID] = *filter
	return nil
}

func (f *fakeFilterGateway) Delete(ctx context.Context, id, userID string) error {
	f.deletes++
	if filter, ok := f.filters[id]; !ok || filter.UserID != userID {
		return domain.ErrFilterNotFound
	}
	delete(f.filters, id)
	return nil
}

type fakeProfileGateway struct {
	profiles map[string]*domain.Profile
	lookups  int
}

func (f *fakeProfileGateway) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	f.lookups++
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, domain.ErrProfileNotFound
}

func (f *fakeProfileGateway) Upsert(ctx context.Context, profile *domain.Profile) error {
	f.profiles[profile.ID] = profile
	return nil
}

func newTestFilterService() (*FilterService, *fakeFilterGateway, *fakeProfileGateway) {
	filters := &fakeFilterGateway{filters: make(map[string]domain.Filter)}
	profiles := &fakeProfileGateway{profiles: make(map[string]*domain.Profile)}
	return NewFilterService(filters, profiles, nil), filters, profiles
}

func TestSaveRequiresName(t *testing.T) {
	svc, _, _ := newTestFilterService()

	err := svc.Save(context.Background(), &domain.Filter{ID: "f1", UserID: "u1"})
	if !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestSaveAndListFilters(t *testing.T) {
	svc, _, _ := newTestFilterService()

	filter := &domain.Filter{ID: "f1", UserID: "u1", Name: "urgent work", Project: domain.ProjectWork, Priority: domain.PriorityHigh}
	if err := svc.Save(context.Background(), filter); err != nil {
		t.Fatalf("save: %v", err)
	}

	unnamed := &domain.Filter{UserID: "u1", Name: "auto id"}
	if err := svc.Save(context.Background(), unnamed); err != nil {
		t.Fatalf("save: %v", err)
	}
	if unnamed.ID == "" {
		t.Fatalf("expected an id assigned on save")
	}

	listed, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(listed))
	}
	names := map[string]bool{}
	for _, f := range listed {
		names[f.Name] = true
	}
	if !names["urgent work"] || !names["auto id"] {
		t.Fatalf("unexpected filters %+v", listed)
	}

	other, err := svc.List(context.Background(), "u2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("filters must be scoped per user, got %+v", other)
	}
}

func TestDeleteFilterScopedByOwner(t *testing.T) {
	svc, gateway, _ := newTestFilterService()
	gateway.filters["f1"] = domain.Filter{ID: "f1", UserID: "u1", Name: "mine"}

	if err := svc.Delete(context.Background(), "f1", "u2"); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected not-found for foreign owner, got %v", err)
	}
	if err := svc.Delete(context.Background(), "f1", "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "", "u1"); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid error for empty id, got %v", err)
	}
}

func TestAssigneeNameCachesLookups(t *testing.T) {
	svc, _, profiles := newTestFilterService()
	profiles.profiles["u1"] = &domain.Profile{ID: "u1", FullName: "Erin Chen"}

	if got := svc.AssigneeName(context.Background(), "u1"); got != "Erin Chen" {
		t.Fatalf("expected display name, got %q", got)
	}
	if got := svc.AssigneeName(context.Background(), "u1"); got != "Erin Chen" {
		t.Fatalf("expected cached name, got %q", got)
	}
	if profiles.lookups != 1 {
		t.Fatalf("expected a single gateway lookup, got %d", profiles.lookups)
	}
}

func TestAssigneeNameFallsBackToID(t *testing.T) {
	svc, _, profiles := newTestFilterService()

	if got := svc.AssigneeName(context.Background(), "ghost"); got != "ghost" {
		t.Fatalf("expected id fallback, got %q", got)
	}
	// failed lookups are not cached so a later provisioning is picked up
	profiles.profiles["ghost"] = &domain.Profile{ID: "ghost", FullName: "Resolved"}
	if got := svc.AssigneeName(context.Background(), "ghost"); got != "Resolved" {
		t.Fatalf("expected refreshed lookup, got %q", got)
	}

	if got := svc.AssigneeName(context.Background(), ""); got != "" {
		t.Fatalf("expected empty assignee to resolve empty, got %q", got)
	}
}
