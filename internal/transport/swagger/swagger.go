package swagger

import (
	"net/http"
	"strings"

	httpSwagger "github.com/swaggo/http-swagger"
)

const SpecPath = "/openapi.yml"

// Handler serves the Swagger UI pointed at the document served by SpecHandler.
// baseURL is the public origin of the API and may be empty.
func Handler(baseURL string) http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL(strings.TrimRight(baseURL, "/") + SpecPath),
	)
}

// SpecHandler serves the raw OpenAPI document.
func SpecHandler(doc []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)
	}
}
