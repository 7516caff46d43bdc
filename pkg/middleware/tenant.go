package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/services/tenant"
)

const (
	HeaderTenantID = "X-Tenant-ID"

	tenantContextKey = "tenant.context"
)

// Tenant extracts the tenant scope from the request header. Requests without
// a tenant are rejected before they reach any handler.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderTenantID)
		if id == "" {
			err := errutil.BadRequest("missing " + HeaderTenantID + " header")
			c.AbortWithStatusJSON(http.StatusBadRequest, err.(errutil.BaseError).JSON())
			return
		}

		c.Set(tenantContextKey, tenant.Context{TenantID: id})
		c.Next()
	}
}

// TenantFrom returns the tenant scope stored by the Tenant middleware.
func TenantFrom(c *gin.Context) tenant.Context {
	if v, ok := c.Get(tenantContextKey); ok {
		if tc, ok := v.(tenant.Context); ok {
			return tc
		}
	}
	return tenant.Context{}
}
