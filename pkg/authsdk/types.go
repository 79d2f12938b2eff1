package authsdk

import "time"

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
// Client code should use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is the stable error code (e.g., "invalid_credentials")
	Error string `json:"error"`

	// Message is a human-readable description of the error
	Message string `json:"message"`

	// Detail carries the mail provider diagnostic for delivery_failed
	Detail string `json:"detail,omitempty"`
}

// ============================================================================
// Identity Types
// ============================================================================

// User is the public view of an identity. Field names follow the JSON the
// web frontend has always consumed.
type User struct {
	ID         string     `json:"id"`
	Nombre     *string    `json:"nombre"`
	Email      string     `json:"email"`
	AuthMethod string     `json:"authMethod"`
	Active     bool       `json:"active"`
	LastLogin  *time.Time `json:"lastLogin"`
}

// ============================================================================
// Request Types
// ============================================================================

// RegisterRequest creates a password account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nombre   string `json:"nombre,omitempty"`
}

// LoginRequest is a password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CodeRequest asks for a one-time code to be mailed to Email.
type CodeRequest struct {
	Email string `json:"email"`
}

// VerifyCodeRequest redeems a one-time code.
type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ============================================================================
// Response Types
// ============================================================================

// RegisterResponse is returned with 201 Created.
type RegisterResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// LoginResponse is returned by both password and code login.
type LoginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// CodeResponse confirms a code was sent. It never contains the code.
type CodeResponse struct {
	Message   string    `json:"message"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyResponse is returned by GET /api/auth/verify.
type VerifyResponse struct {
	Valid bool `json:"valid"`
	User  User `json:"user"`
}

// DashboardResponse is returned by GET /api/auth/dashboard.
type DashboardResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by /livez, /readyz and /api/health (readiness includes the Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Timestamp is when the check ran
	Timestamp time.Time `json:"timestamp"`

	// Checks contains readiness check results for critical dependencies
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`
}
