package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/middlewares"

	"github.com/golang-jwt/jwt"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	authFailure      = "Authentication failed\n"
	testSecret       = "s3cr3t"
	expectedSubject  = "keycloak-webhook"
	authHeaderName   = "Authorization"
	eventsEndpoint   = "/api/identity-event-forwarder/v1/events"
	validTokenExpiry = time.Hour
)

func signToken(method jwt.SigningMethod, key interface{}, subject string, expiresIn time.Duration) string {
	token := jwt.NewWithClaims(method, &jwt.StandardClaims{
		Subject:   subject,
		ExpiresAt: time.Now().Add(expiresIn).Unix(),
	})

	signed, err := token.SignedString(key)
	Expect(err).ToNot(HaveOccurred())
	return signed
}

func getTestHandler(expectedSubject string) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		principal, ok := middlewares.GetPrincipal(req.Context())
		Expect(ok).To(Equal(true))
		Expect(principal.GetSubject()).To(Equal(expectedSubject))
	}
}

func boiler(req *http.Request, expectedStatusCode int, expectedBody string, handler http.Handler, amw *middlewares.AuthMiddleware) {
	rr := httptest.NewRecorder()
	amw.Authenticate(handler).ServeHTTP(rr, req)

	Expect(rr.Code).To(Equal(expectedStatusCode))
	Expect(rr.Body.String()).To(Equal(expectedBody))
}

var _ = Describe("Auth", func() {
	var (
		req *http.Request
		amw *middlewares.AuthMiddleware
	)

	BeforeEach(func() {
		amw = &middlewares.AuthMiddleware{Secret: []byte(testSecret)}

		r, err := http.NewRequest("POST", eventsEndpoint, nil)
		if err != nil {
			panic("Test error unable to get new request")
		}
		req = r
	})

	Context("With a valid bearer token", func() {
		It("Should return 200 and expose the token subject", func() {
			req.Header.Add(authHeaderName, "Bearer "+signToken(jwt.SigningMethodHS256, []byte(testSecret), expectedSubject, validTokenExpiry))

			boiler(req, 200, "", getTestHandler(expectedSubject), amw)
		})
	})

	Context("With an invalid bearer token", func() {
		It("Should return 401 when the header is missing", func() {
			boiler(req, 401, authFailure, getTestHandler(expectedSubject), amw)
		})

		It("Should return 401 when the header is not a bearer token", func() {
			req.Header.Add(authHeaderName, "Basic dXNlcjpwYXNz")

			boiler(req, 401, authFailure, getTestHandler(expectedSubject), amw)
		})

		It("Should return 401 when the token is signed with another secret", func() {
			req.Header.Add(authHeaderName, "Bearer "+signToken(jwt.SigningMethodHS256, []byte("other"), expectedSubject, validTokenExpiry))

			boiler(req, 401, authFailure, getTestHandler(expectedSubject), amw)
		})

		It("Should return 401 when the token has expired", func() {
			req.Header.Add(authHeaderName, "Bearer "+signToken(jwt.SigningMethodHS256, []byte(testSecret), expectedSubject, -time.Minute))

			boiler(req, 401, authFailure, getTestHandler(expectedSubject), amw)
		})

		It("Should return 401 when the token uses another algorithm", func() {
			req.Header.Add(authHeaderName, "Bearer "+signToken(jwt.SigningMethodHS512, []byte(testSecret), expectedSubject, validTokenExpiry))

			boiler(req, 401, authFailure, getTestHandler(expectedSubject), amw)
		})
	})

	Context("Without a configured secret", func() {
		It("Should pass requests through", func() {
			amw = &middlewares.AuthMiddleware{}

			handler := http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
				_, ok := middlewares.GetPrincipal(req.Context())
				Expect(ok).To(Equal(false))
			})

			boiler(req, 200, "", handler, amw)
		})
	})
})
