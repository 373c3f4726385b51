package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrForbidden          ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidScope   ErrCode = "INVALID_SCOPE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound             ErrCode = "NOT_FOUND"
	ErrConflict             ErrCode = "CONFLICT"
	ErrUnknownScreen        ErrCode = "UNKNOWN_SCREEN"
	ErrConfirmationRequired ErrCode = "CONFIRMATION_REQUIRED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrUpstreamUnavailable ErrCode = "UPSTREAM_UNAVAILABLE"
	ErrUpstream            ErrCode = "UPSTREAM_ERROR"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Nama pengguna atau kata sandi salah."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."
	case ErrInvalidScope:
		return "Filter tidak didukung pada layar ini."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada atau masih digunakan oleh data lain."
	case ErrUnknownScreen:
		return "Layar tidak dikenal."
	case ErrConfirmationRequired:
		return "Penghapusan memerlukan konfirmasi."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrUpstreamUnavailable:
		return "Server bank soal tidak dapat dihubungi."
	case ErrUpstream:
		return "Server bank soal mengembalikan kesalahan."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
