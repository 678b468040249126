package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeSimulationFailed:         "Transaction simulation failed",
	CodeTransactionFailed:        "Transaction submission failed",

	// Venue errors
	CodeVenueUnavailable: "Venue is unavailable",
	CodeVenueQuoteFailed: "Failed to get venue quote",
	CodePoolNotFound:     "No pool found for token pair",
	CodeInvalidQuote:     "Invalid quote data",
	CodeUnknownVenue:     "Unknown venue identifier",
	CodeUnknownToken:     "Token not found in configuration",

	// Aggregation / detection errors
	CodeInsufficientData:      "Not enough quotes to compute opportunities",
	CodeInsufficientLiquidity: "Insufficient liquidity for trade size",
	CodeInvalidTradeSize:      "Invalid trade size",

	// Drafting errors
	CodeInvalidIntent:       "Intent is missing required fields",
	CodeUnresolvedRecipient: "Recipient address could not be resolved",
	CodeEncodingFailed:      "Failed to encode transaction data",

	// Evaluation errors
	CodeCriterionFailed:       "Evaluation criterion could not complete",
	CodeRevisionLimitExceeded: "Maximum revision attempts exceeded",

	// Wallet errors
	CodeWalletNotConfigured: "Agent wallet is not configured",
	CodeInvalidPrivateKey:   "Invalid private key",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
