package auth_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-tickets/internal/auth"
)

var _ = Describe("TokenCodec", func() {
	var (
		now   time.Time
		codec *auth.TokenCodec
	)

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		codec = auth.NewTokenCodec(testSecret).WithClock(func() time.Time { return now })
	})

	It("round-trips subject, claimed role and expiry", func() {
		token, expiresAt, err := codec.Encode("u1@example.com", "operari", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(expiresAt).To(Equal(now.Add(time.Hour)))

		claims, err := codec.Decode(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Subject).To(Equal("u1@example.com"))
		Expect(claims.ClaimedRole()).To(Equal("operari"))
		Expect(claims.Expiry().Equal(expiresAt)).To(BeTrue())
		Expect(claims.ID).NotTo(BeEmpty())
	})

	It("rejects a token signed with another secret", func() {
		other := auth.NewTokenCodec("ffffffffffffffffffffffffffffffff").WithClock(func() time.Time { return now })
		token, _, err := other.Encode("u1@example.com", "admin", time.Hour)
		Expect(err).NotTo(HaveOccurred())

		_, err = codec.Decode(token)
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	It("rejects a tampered token", func() {
		token, _, err := codec.Encode("u1@example.com", "operari", time.Hour)
		Expect(err).NotTo(HaveOccurred())

		parts := strings.Split(token, ".")
		parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u1@example.com","rol":"admin","exp":4102444800}`))
		_, err = codec.Decode(strings.Join(parts, "."))
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	It("rejects garbage and empty input", func() {
		_, err := codec.Decode("not-a-token")
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())

		_, err = codec.Decode("")
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	It("reports expiry once the clock passes it", func() {
		token, _, err := codec.Encode("u1@example.com", "operari", time.Minute)
		Expect(err).NotTo(HaveOccurred())

		later := codec.WithClock(func() time.Time { return now.Add(2 * time.Minute) })
		_, err = later.Decode(token)
		Expect(errors.Is(err, auth.ErrTokenExpired)).To(BeTrue())
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		Expect(errors.Is(err, jwt.ErrTokenExpired)).To(BeTrue())
	})

	It("rejects tokens using a different algorithm", func() {
		claims := &auth.Claims{
			Role: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1@example.com",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		Expect(err).NotTo(HaveOccurred())

		_, err = codec.Decode(unsigned)
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	It("rejects tokens without an expiry", func() {
		claims := &auth.Claims{
			Role:             "admin",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u1@example.com"},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		Expect(err).NotTo(HaveOccurred())

		_, err = codec.Decode(token)
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	It("accepts the legacy role claim", func() {
		claims := &auth.Claims{
			LegacyRole: "Supervisora",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "s1@example.com",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		Expect(err).NotTo(HaveOccurred())

		decoded, err := codec.Decode(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.ClaimedRole()).To(Equal("Supervisora"))
	})
})
