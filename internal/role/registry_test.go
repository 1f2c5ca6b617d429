package role_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-tickets/internal/role"
)

type mockRoleRepository struct {
	mu     sync.Mutex
	roles  map[string]*role.Role
	gets   int
	getErr error
}

func newMockRoleRepository() *mockRoleRepository {
	return &mockRoleRepository{roles: map[string]*role.Role{}}
}

func (m *mockRoleRepository) Get(_ context.Context, name string) (*role.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, ok := m.roles[name]
	if !ok {
		return nil, role.ErrRoleNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRoleRepository) List(_ context.Context) ([]*role.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*role.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRoleRepository) Upsert(_ context.Context, r *role.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.roles[r.Name] = &cp
	return nil
}

func (m *mockRoleRepository) Delete(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.roles[name]
	delete(m.roles, name)
	return ok, nil
}

var _ = Describe("Registry", func() {
	var (
		ctx      context.Context
		repo     *mockRoleRepository
		registry *role.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRoleRepository()

		var err error
		registry, err = role.NewRegistry(repo, 16, slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("EnsureBaseline", func() {
		It("creates the baseline roles and is safe to repeat", func() {
			Expect(registry.EnsureBaseline(ctx)).To(Succeed())
			Expect(registry.EnsureBaseline(ctx)).To(Succeed())

			roles, err := registry.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(HaveLen(4))
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			Expect(registry.EnsureBaseline(ctx)).To(Succeed())
		})

		It("resolves aliases to the stored role", func() {
			r, err := registry.Get(ctx, "Contabilidad")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Name).To(Equal(role.Comptabilitat))
		})

		It("serves repeated reads from the cache", func() {
			_, err := registry.Get(ctx, role.Supervisor)
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.Get(ctx, role.Supervisor)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.gets).To(Equal(1))
		})

		It("returns ErrRoleNotFound for unknown names", func() {
			_, err := registry.Get(ctx, "auditor")
			Expect(errors.Is(err, role.ErrRoleNotFound)).To(BeTrue())
		})

		It("does not cache misses", func() {
			_, _ = registry.Get(ctx, "auditor")
			_, err := registry.Upsert(ctx, "auditor", []string{role.TicketsView})
			Expect(err).NotTo(HaveOccurred())

			r, err := registry.Get(ctx, "auditor")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Permissions).To(Equal([]string{role.TicketsView}))
		})
	})

	Describe("Upsert", func() {
		It("replaces the permission set wholesale and invalidates the cache", func() {
			_, err := registry.Upsert(ctx, role.Operari, []string{role.TicketsCreate, role.TicketsView})
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.Get(ctx, role.Operari)
			Expect(err).NotTo(HaveOccurred())

			_, err = registry.Upsert(ctx, role.Operari, []string{role.TicketsView})
			Expect(err).NotTo(HaveOccurred())

			r, err := registry.Get(ctx, role.Operari)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Permissions).To(Equal([]string{role.TicketsView}))
		})

		It("stores under the canonical name", func() {
			r, err := registry.Upsert(ctx, " Supervisora ", []string{role.TicketsView})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Name).To(Equal(role.Supervisor))
		})

		It("rejects an empty name", func() {
			_, err := registry.Upsert(ctx, "  ", []string{role.TicketsView})
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown permissions without writing", func() {
			_, err := registry.Upsert(ctx, "auditor", []string{"tickets:fly"})
			Expect(err).To(HaveOccurred())
			Expect(repo.roles).NotTo(HaveKey("auditor"))
		})
	})

	Describe("Delete", func() {
		It("returns false for unknown names", func() {
			deleted, err := registry.Delete(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())
		})

		It("does not leak a deleted role through the cache", func() {
			Expect(registry.EnsureBaseline(ctx)).To(Succeed())
			_, err := registry.Get(ctx, role.Admin)
			Expect(err).NotTo(HaveOccurred())

			deleted, err := registry.Delete(ctx, role.Admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			_, err = registry.Get(ctx, role.Admin)
			Expect(errors.Is(err, role.ErrRoleNotFound)).To(BeTrue())
		})
	})
})
