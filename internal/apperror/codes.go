package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Domain-specific error codes
const (
	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeSimulationFailed         Code = "SIMULATION_FAILED"
	CodeTransactionFailed        Code = "TRANSACTION_FAILED"

	// Venue (price source) errors
	CodeVenueUnavailable Code = "VENUE_UNAVAILABLE"
	CodeVenueQuoteFailed Code = "VENUE_QUOTE_FAILED"
	CodePoolNotFound     Code = "POOL_NOT_FOUND"
	CodeInvalidQuote     Code = "INVALID_QUOTE"
	CodeUnknownVenue     Code = "UNKNOWN_VENUE"
	CodeUnknownToken     Code = "UNKNOWN_TOKEN"

	// Aggregation / detection errors
	CodeInsufficientData      Code = "INSUFFICIENT_DATA"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidTradeSize      Code = "INVALID_TRADE_SIZE"

	// Drafting errors
	CodeInvalidIntent       Code = "INVALID_INTENT"
	CodeUnresolvedRecipient Code = "UNRESOLVED_RECIPIENT"
	CodeEncodingFailed      Code = "ENCODING_FAILED"

	// Evaluation errors
	CodeCriterionFailed       Code = "CRITERION_FAILED"
	CodeRevisionLimitExceeded Code = "REVISION_LIMIT_EXCEEDED"

	// Wallet errors
	CodeWalletNotConfigured Code = "WALLET_NOT_CONFIGURED"
	CodeInvalidPrivateKey   Code = "INVALID_PRIVATE_KEY"

	// Cache errors
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheExpired Code = "CACHE_EXPIRED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
