package category_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/expense-tickets/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-tickets/internal/category/postgres"
	categoryDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/category"
	"github.com/frahmantamala/expense-tickets/internal/transport"
)

var _ = Describe("Category Handler Integration", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		repo    category.RepositoryAPI
		service *category.Service
		handler *category.Handler
		slogger *slog.Logger
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&categoryDatamodel.TicketCategory{})).To(Succeed())

		repo = categoryPostgres.NewCategoryRepository(db)
		service = category.NewService(repo, slogger)
		handler = category.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		Expect(service.EnsureDefaults(ctx)).To(Succeed())

		retired, err := repo.GetByName(ctx, category.Altres)
		Expect(err).NotTo(HaveOccurred())
		retired.IsActive = false
		Expect(repo.Update(ctx, retired)).To(Succeed())
	})

	It("should handle GET /categories request successfully", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
		w := httptest.NewRecorder()

		handler.GetCategories(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var response category.CategoriesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())

		names := make([]string, len(response.Categories))
		for i, cat := range response.Categories {
			names[i] = cat.Name
		}
		Expect(names).To(ConsistOf(category.Dieta, category.Gasolina, category.Parking, category.Peatge))
	})

	It("should expose the fuel and photo flags", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
		w := httptest.NewRecorder()

		handler.GetCategories(w, req)

		var response category.CategoriesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		for _, cat := range response.Categories {
			Expect(cat.IsFuel).To(Equal(cat.Name == category.Gasolina))
		}
	})
})
