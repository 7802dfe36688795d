package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps "METHOD /route/template" to its required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Operational - Public
	"GET /healthz": SecurityPublic,
	"GET /metrics": SecurityPublic,

	// Provider webhooks - Public (rail deliveries are authenticated by signature)
	"POST /webhooks/rail":       SecurityPublic,
	"POST /webhooks/aggregator": SecurityPublic,

	// Transfers - Access Protected
	"POST /api/v1/transfers/p2p":            SecurityAccess,
	"POST /api/v1/transfers/bank":           SecurityAccess,
	"POST /api/v1/transactions/{id}/cancel": SecurityAccess,

	// Notifications - Access Protected
	"GET /api/v1/notifications":            SecurityAccess,
	"POST /api/v1/notifications/{id}/read": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
