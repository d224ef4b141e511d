package swagger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/frahmantamala/shopbot-engine/internal/transport/swagger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const specPath = "../../../api/openapi.yml"

var _ = Describe("OpenAPI document", func() {
	ctx := context.Background()

	It("loads and validates", func() {
		doc, err := swagger.LoadSpec(ctx, specPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Info.Title).To(Equal("Shopbot Engine API"))
	})

	It("documents every mounted route", func() {
		doc, err := swagger.LoadSpec(ctx, specPath)
		Expect(err).NotTo(HaveOccurred())

		routes := map[string][]string{
			"/checkout":                           {http.MethodPost},
			"/orders/{orderID}":                   {http.MethodGet},
			"/orders/{orderID}/payment":           {http.MethodGet},
			"/customers/{customerID}/orders":      {http.MethodGet},
			"/payments/{paymentID}":               {http.MethodGet},
			"/payments/{paymentID}/verify":        {http.MethodPost},
			"/payments/{paymentID}/fail":          {http.MethodPost},
			"/payments/{paymentID}/proof":         {http.MethodPost},
			"/payment/callback":                   {http.MethodPost},
			"/products/{productID}/stock":         {http.MethodGet, http.MethodPut},
			"/products/{productID}/stock/history": {http.MethodGet},
			"/stock/low":                          {http.MethodGet},
			"/stock/stream":                       {http.MethodGet},
			"/catalog":                            {http.MethodGet},
			"/catalog/{productID}":                {http.MethodGet},
			"/notifications/{messageID}":          {http.MethodGet},
			"/notifications/{messageID}/read":     {http.MethodPost},
			"/health":                             {http.MethodGet},
			"/ping":                               {http.MethodGet},
		}
		for path, methods := range routes {
			item := doc.Paths.Find(path)
			Expect(item).NotTo(BeNil(), path)
			for _, m := range methods {
				Expect(item.GetOperation(m)).NotTo(BeNil(), m+" "+path)
			}
		}
	})

	It("rejects a broken document", func() {
		broken := filepath.Join(GinkgoT().TempDir(), "broken.yml")
		Expect(os.WriteFile(broken, []byte("openapi: 3.0.3\ninfo:\n  version: 1\npaths: {}\n"), 0o600)).To(Succeed())

		_, err := swagger.LoadSpec(ctx, broken)
		Expect(err).To(HaveOccurred())

		_, err = swagger.SpecHandler(ctx, broken)
		Expect(err).To(HaveOccurred())
	})

	It("serves the raw yaml", func() {
		h, err := swagger.SpecHandler(ctx, specPath)
		Expect(err).NotTo(HaveOccurred())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yml", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/yaml"))
		Expect(rec.Body.String()).To(ContainSubstring("openapi: 3.0.3"))
	})
})
