package internal_test

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("keeps sentinels matchable after Wrap", func() {
		cause := fmt.Errorf("row locked")
		err := fmt.Errorf("deduct: %w", apperrors.Wrap(apperrors.ErrInsufficientStock, cause))

		Expect(errors.Is(err, apperrors.ErrInsufficientStock)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(errors.Is(err, apperrors.ErrNegativeStock)).To(BeFalse())
		Expect(apperrors.ErrInsufficientStock.Cause).To(BeNil())
	})

	It("maps to its HTTP status", func() {
		appErr, ok := apperrors.IsAppError(fmt.Errorf("wrapped: %w", apperrors.ErrPaymentNotFound))
		Expect(ok).To(BeTrue())

		status, body := appErr.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(body).To(Equal(apperrors.Response{Error: appErr}))
	})

	It("hides the cause from clients", func() {
		appErr := apperrors.NewInternalError("internal server error", fmt.Errorf("pq: password authentication failed"))
		raw, err := appErr.MarshalJSON()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).NotTo(ContainSubstring("password"))
		Expect(appErr.Error()).To(ContainSubstring("password"))
	})
})
