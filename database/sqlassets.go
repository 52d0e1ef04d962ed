package sqlassets

import _ "embed"

//go:embed schema/platform/tenants.sql
var TenantsSQL string

//go:embed schema/platform/users.sql
var UsersSQL string

//go:embed schema/platform/portal_clients.sql
var PortalClientsSQL string

//go:embed schema/platform/otp_codes.sql
var OTPCodesSQL string

//go:embed schema/platform/rate_limit_windows.sql
var RateLimitWindowsSQL string

//go:embed schema/platform/contracts.sql
var ContractsSQL string

// All returns the platform DDL in dependency order.
func All() []string {
	return []string{
		TenantsSQL,
		UsersSQL,
		PortalClientsSQL,
		OTPCodesSQL,
		RateLimitWindowsSQL,
		ContractsSQL,
	}
}
