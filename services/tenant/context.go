package tenant

// Context is the explicit tenant scope for every core operation. It is always
// passed as an argument, never inferred from ambient session state, so a
// missing scope is a compile-time mistake rather than a data leak.
type Context struct {
	TenantID string
}

// Scoped reports whether the context carries a tenant.
func (c Context) Scoped() bool {
	return c.TenantID != ""
}
