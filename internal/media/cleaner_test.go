package media_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/frahmantamala/expense-tickets/internal/media"
)

var _ = Describe("Cleaner", func() {
	var (
		ctx context.Context
		fs  afero.Fs
		cfg media.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		fs = afero.NewMemMapFs()
		cfg = media.Config{Workers: 2, QueueSize: 10, MaxRetries: 2, RetryBaseDelay: time.Millisecond}

		Expect(fs.MkdirAll("/tickets", 0o755)).To(Succeed())
		for _, name := range []string{"/tickets/a.jpg", "/tickets/b.jpg", "/c.png"} {
			Expect(afero.WriteFile(fs, name, []byte("img"), 0o644)).To(Succeed())
		}
	})

	exists := func(name string) bool {
		ok, err := afero.Exists(fs, name)
		Expect(err).NotTo(HaveOccurred())
		return ok
	}

	It("removes released attachments before shutdown returns", func() {
		// Given
		cleaner := media.NewCleaner(fs, cfg, discardLogger())

		// When
		cleaner.Release("tickets/a.jpg")
		cleaner.Release("/c.png")
		Expect(cleaner.Shutdown(ctx)).To(Succeed())

		// Then
		Expect(exists("/tickets/a.jpg")).To(BeFalse())
		Expect(exists("/c.png")).To(BeFalse())
		Expect(exists("/tickets/b.jpg")).To(BeTrue())
	})

	It("drops jobs released after shutdown", func() {
		cleaner := media.NewCleaner(fs, cfg, discardLogger())
		Expect(cleaner.Shutdown(ctx)).To(Succeed())

		Expect(func() { cleaner.Release("tickets/a.jpg") }).NotTo(Panic())
		Expect(exists("/tickets/a.jpg")).To(BeTrue())
	})

	Describe("Remove", func() {
		var cleaner *media.Cleaner

		BeforeEach(func() {
			cleaner = media.NewCleaner(fs, cfg, discardLogger())
			DeferCleanup(func() { Expect(cleaner.Shutdown(ctx)).To(Succeed()) })
		})

		It("treats an already missing file as removed", func() {
			Expect(cleaner.Remove(ctx, "tickets/gone.jpg")).To(Succeed())
		})

		DescribeTable("refuses paths outside the upload directory",
			func(path string) {
				err := cleaner.Remove(ctx, path)
				Expect(errors.Is(err, media.ErrInvalidPath)).To(BeTrue())
			},
			Entry("parent", "../etc/passwd"),
			Entry("nested parent", "tickets/../../secret"),
			Entry("empty", "   "),
			Entry("root", "/"),
		)

		It("gives up after the configured retries", func() {
			// Given
			readOnly := media.NewCleaner(afero.NewReadOnlyFs(fs), cfg, discardLogger())
			DeferCleanup(func() { Expect(readOnly.Shutdown(ctx)).To(Succeed()) })

			// When
			err := readOnly.Remove(ctx, "tickets/a.jpg")

			// Then
			Expect(err).To(HaveOccurred())
			Expect(exists("/tickets/a.jpg")).To(BeTrue())
		})
	})

	Describe("Sweep", func() {
		It("queues only files no ticket references", func() {
			// Given
			cleaner := media.NewCleaner(fs, cfg, discardLogger())

			// When
			queued, err := cleaner.Sweep(ctx, []string{"tickets/a.jpg", "../outside.jpg"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cleaner.Shutdown(ctx)).To(Succeed())

			// Then
			Expect(queued).To(Equal(2))
			Expect(exists("/tickets/a.jpg")).To(BeTrue())
			Expect(exists("/tickets/b.jpg")).To(BeFalse())
			Expect(exists("/c.png")).To(BeFalse())
		})

		It("waits for queue space instead of dropping", func() {
			// Given
			cfg.Workers, cfg.QueueSize = 1, 1
			cleaner := media.NewCleaner(fs, cfg, discardLogger())

			// When
			queued, err := cleaner.Sweep(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cleaner.Shutdown(ctx)).To(Succeed())

			// Then
			Expect(queued).To(Equal(3))
			Expect(exists("/tickets/a.jpg")).To(BeFalse())
			Expect(exists("/tickets/b.jpg")).To(BeFalse())
			Expect(exists("/c.png")).To(BeFalse())
		})

		It("lists orphans without removing them", func() {
			orphans, err := media.Unreferenced(ctx, fs, []string{"/c.png"})

			Expect(err).NotTo(HaveOccurred())
			Expect(orphans).To(ConsistOf("/tickets/a.jpg", "/tickets/b.jpg"))
			Expect(exists("/tickets/a.jpg")).To(BeTrue())
		})

		It("refuses to sweep after shutdown", func() {
			cleaner := media.NewCleaner(fs, cfg, discardLogger())
			Expect(cleaner.Shutdown(ctx)).To(Succeed())

			_, err := cleaner.Sweep(ctx, nil)
			Expect(errors.Is(err, media.ErrClosed)).To(BeTrue())
		})

		It("stops when the context is cancelled", func() {
			cleaner := media.NewCleaner(fs, cfg, discardLogger())
			DeferCleanup(func() { Expect(cleaner.Shutdown(ctx)).To(Succeed()) })

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := cleaner.Sweep(cancelled, nil)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})
})
