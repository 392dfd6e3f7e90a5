package passwordreset

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/auth"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	resetDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/passwordreset"
)

func TestPasswordResetService(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Password Reset Service Suite")
}

type mockRepository struct {
	users     map[string]*identityDatamodel.User
	byPhone   map[string]*identityDatamodel.User
	resets    []*resetDatamodel.PasswordResetSMS
	passwords map[int64]string
	nextID    int64
}

func newMockRepository() *mockRepository {
	jane := &identityDatamodel.User{ID: 3, CompanyID: 1, Username: "mjane", Phone: "+56912345678"}
	return &mockRepository{
		users:     map[string]*identityDatamodel.User{"mjane": jane},
		byPhone:   map[string]*identityDatamodel.User{"+56912345678": jane},
		passwords: make(map[int64]string),
		nextID:    1,
	}
}

func (m *mockRepository) FindUserByUsername(username string) (*identityDatamodel.User, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func (m *mockRepository) FindUserByPhone(phone string) (*identityDatamodel.User, error) {
	if u, ok := m.byPhone[phone]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func (m *mockRepository) InvalidateUnused(userID int64) error {
	for _, r := range m.resets {
		if r.UserID == userID && !r.Used {
			r.Used = true
		}
	}
	return nil
}

func (m *mockRepository) CreateReset(r *resetDatamodel.PasswordResetSMS) error {
	r.ID = m.nextID
	m.nextID++
	r.CreatedAt = time.Now()
	m.resets = append(m.resets, r)
	return nil
}

func (m *mockRepository) LatestReset(userID int64) (*resetDatamodel.PasswordResetSMS, error) {
	for i := len(m.resets) - 1; i >= 0; i-- {
		if m.resets[i].UserID == userID && !m.resets[i].Used {
			return m.resets[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockRepository) SaveReset(r *resetDatamodel.PasswordResetSMS) error {
	return nil
}

func (m *mockRepository) UpdatePassword(userID int64, passwordHash string) error {
	m.passwords[userID] = passwordHash
	return nil
}

type capturingBackend struct {
	messages []string
	phones   []string
	fail     bool
}

func (b *capturingBackend) Send(ctx context.Context, phone, message string) error {
	if b.fail {
		return errors.New("gateway unavailable")
	}
	b.phones = append(b.phones, phone)
	b.messages = append(b.messages, message)
	return nil
}

// lastCode extracts the 6-digit code from the most recent SMS.
func lastCode(b *capturingBackend) string {
	msg := b.messages[len(b.messages)-1]
	for i := 0; i+6 <= len(msg); i++ {
		candidate := msg[i : i+6]
		digits := true
		for _, r := range candidate {
			if r < '0' || r > '9' {
				digits = false
				break
			}
		}
		if digits {
			return candidate
		}
	}
	return ""
}

var _ = ginkgo.Describe("PasswordResetService", func() {
	var (
		service  *Service
		mockRepo *mockRepository
		backend  *capturingBackend
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockRepository()
		backend = &capturingBackend{}
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(mockRepo, NewMemoryRateLimiter(), backend, bcrypt.MinCost, lg)
		ctx = context.Background()
	})

	ginkgo.Describe("RequestReset", func() {
		ginkgo.It("should issue a hashed six-digit code and send it by SMS", func() {
			resp, err := service.RequestReset(ctx, RequestDTO{Identifier: "mjane"}, "203.0.113.7")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(resp.MaskedPhone).To(gomega.Equal("+569******78"))
			gomega.Expect(backend.phones).To(gomega.Equal([]string{"+56912345678"}))

			code := lastCode(backend)
			gomega.Expect(code).To(gomega.HaveLen(6))
			gomega.Expect(mockRepo.resets).To(gomega.HaveLen(1))
			gomega.Expect(mockRepo.resets[0].CodeHash).ToNot(gomega.ContainSubstring(code))
			gomega.Expect(auth.VerifyPassword(mockRepo.resets[0].CodeHash, code)).To(gomega.Succeed())
		})

		ginkgo.It("should find the account by phone number too", func() {
			_, err := service.RequestReset(ctx, RequestDTO{Identifier: "+56 9 1234 5678"}, "203.0.113.7")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(backend.messages).To(gomega.HaveLen(1))
		})

		ginkgo.It("should invalidate previous unused codes on reissue", func() {
			_, err := service.RequestReset(ctx, RequestDTO{Identifier: "mjane"}, "203.0.113.7")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			firstCode := lastCode(backend)

			_, err = service.RequestReset(ctx, RequestDTO{Identifier: "mjane"}, "203.0.113.7")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(mockRepo.resets[0].Used).To(gomega.BeTrue())
			err = service.VerifyOTP(ctx, VerifyDTO{Identifier: "mjane", Code: firstCode})
			if firstCode != lastCode(backend) {
				gomega.Expect(err).To(gomega.HaveOccurred())
			}
		})

		ginkgo.It("should answer generically for an unknown identifier", func() {
			resp, err := service.RequestReset(ctx, RequestDTO{Identifier: "nobody"}, "203.0.113.7")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(resp.MaskedPhone).To(gomega.BeEmpty())
			gomega.Expect(backend.messages).To(gomega.BeEmpty())
		})

		ginkgo.It("should rate limit after five requests in the window", func() {
			for i := 0; i < 5; i++ {
				_, err := service.RequestReset(ctx, RequestDTO{Identifier: "mjane"}, "203.0.113.7")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			}

			_, err := service.RequestReset(ctx, RequestDTO{Identifier: "mjane"}, "203.0.113.7")

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeOTPRateLimited))
		})

		ginkgo.It("should surface SMS delivery failures", func() {
			backend.fail = true
			_, err := service.RequestReset(ctx, RequestDTO{Identifier: "mjane"}, "203.0.113.7")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("VerifyOTP and SetPassword", func() {
		var code string

		ginkgo.BeforeEach(func() {
			_, err := service.RequestReset(ctx, RequestDTO{Identifier: "mjane"}, "203.0.113.7")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			code = lastCode(backend)
		})

		ginkgo.It("should accept the correct code without consuming it", func() {
			gomega.Expect(service.VerifyOTP(ctx, VerifyDTO{Identifier: "mjane", Code: code})).To(gomega.Succeed())
			gomega.Expect(mockRepo.resets[0].Used).To(gomega.BeFalse())
			gomega.Expect(mockRepo.resets[0].Attempts).To(gomega.BeZero())
		})

		ginkgo.It("should count wrong codes against the attempt limit", func() {
			wrong := "000000"
			if wrong == code {
				wrong = "000001"
			}

			for i := 0; i < 5; i++ {
				err := service.VerifyOTP(ctx, VerifyDTO{Identifier: "mjane", Code: wrong})
				gomega.Expect(err).To(gomega.HaveOccurred())
			}
			gomega.Expect(mockRepo.resets[0].Attempts).To(gomega.Equal(5))

			err := service.VerifyOTP(ctx, VerifyDTO{Identifier: "mjane", Code: code})
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeOTPAttemptsExceed))
		})

		ginkgo.It("should reject an expired code", func() {
			mockRepo.resets[0].ExpiresAt = time.Now().Add(-time.Minute)

			err := service.VerifyOTP(ctx, VerifyDTO{Identifier: "mjane", Code: code})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeOTPExpired))
		})

		ginkgo.It("should change the password and consume the code", func() {
			err := service.SetPassword(ctx, SetPasswordDTO{
				Identifier: "mjane", Code: code, NewPassword: "correct-horse-9",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(auth.VerifyPassword(mockRepo.passwords[3], "correct-horse-9")).To(gomega.Succeed())
			gomega.Expect(mockRepo.resets[0].Used).To(gomega.BeTrue())

			err = service.SetPassword(ctx, SetPasswordDTO{
				Identifier: "mjane", Code: code, NewPassword: "another-pass-1",
			})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("should reject short replacement passwords", func() {
			err := service.SetPassword(ctx, SetPasswordDTO{
				Identifier: "mjane", Code: code, NewPassword: "short",
			})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})
})
