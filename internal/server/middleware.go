package server

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/tenant"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
)

const (
	companyIDHeader = "X-Company-ID"
	requestIDHeader = "X-Request-ID"
)

// tenantContext requires a company header on every request and threads the
// tenant and a request ID through the context for handlers, repositories and
// log lines.
func tenantContext(baseLogger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			companyID := r.Header.Get(companyIDHeader)
			if companyID == "" {
				writeErrorMessage(w, http.StatusBadRequest, "missing "+companyIDHeader+" header")
				return
			}

			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := tenant.WithCompanyID(r.Context(), companyID)
			ctx = tenant.WithRequestID(ctx, requestID)
			ctx = logger.WithLogger(ctx, baseLogger.With(
				zap.String("company_id", companyID),
			))

			w.Header().Set(requestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
